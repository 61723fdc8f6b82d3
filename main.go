package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tsutsumi/internal/tsutsumi"
)

func usage() {
	fmt.Println("Usage: tsutsumi <command> [args...]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  build    Run the full pipeline: clean, deps, package, verify")
	fmt.Println("  clean    Remove previous output and build directories")
	fmt.Println("  deps     Install dependencies from the manifest")
	fmt.Println("  package  Run the bundler against the spec file")
	fmt.Println("  verify   Re-check the artifact against its checksum file")
	fmt.Println("  archive  Compress the output directory for distribution")
	fmt.Println("  publish  Upload the latest archive to the release bucket")
	fmt.Println("  log      View the logs of the last build")
	fmt.Println("  version  Print version information")
}

func main() {
	// 1. SIGNAL HANDLING
	// A cancelled context kills the whole process group of any running
	// external command, so Ctrl+C does not orphan a half-done bundler.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nReceived %s, aborting.\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if len(os.Args) < 2 {
		usage()
		return
	}

	// 2. CONFIGURATION
	cfg, err := tsutsumi.LoadConfig(tsutsumi.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	tsutsumi.InitConfig(cfg)

	tsutsumi.Exec = tsutsumi.NewExecutor(ctx)

	// 3. DISPATCH
	args := os.Args[2:]
	switch os.Args[1] {
	case "build":
		err = tsutsumi.HandleBuildCommand(args)
	case "clean":
		err = tsutsumi.HandleCleanCommand(args)
	case "deps":
		err = tsutsumi.HandleDepsCommand()
	case "package":
		err = tsutsumi.HandlePackageCommand()
	case "verify":
		err = tsutsumi.HandleVerifyCommand()
	case "archive":
		err = tsutsumi.HandleArchiveCommand(args)
	case "publish":
		err = tsutsumi.HandlePublishCommand(args, cfg)
	case "log":
		err = tsutsumi.HandleLogCommand()
	case "version":
		tsutsumi.PrintVersion()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Println("Unknown command:", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
