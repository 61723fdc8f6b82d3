package tsutsumi

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/term"
)

// BuildOptions carries the flags of the build command.
type BuildOptions struct {
	SkipDeps bool // reuse the installed dependencies from a previous run
	Pause    bool // wait for a keypress after the final message
	Quiet    bool // suppress per-step status lines
	Force    bool // delete a foreign output directory without asking
}

type buildStep struct {
	name  string // short id, also the log file name
	title string
	run   func() error
}

// RunBuild executes the packaging pipeline: clean, install dependencies,
// run the bundler, verify the artifact. Each step's exit status is
// checked; the first failure aborts the run with a diagnostic naming the
// step, and no completion banner is printed.
func RunBuild(opts BuildOptions) error {
	lock, err := AcquireBuildLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	report := NewBuildReport()

	var artifact *ArtifactInfo
	steps := []buildStep{
		{name: "clean", title: "Cleaning previous build output", run: func() error {
			return cleanStep(opts)
		}},
		{name: "deps", title: fmt.Sprintf("Installing dependencies from %s", filepath.Base(ManifestFile)), run: func() error {
			if opts.SkipDeps {
				arrow()
				cPrintln(colNote, "Skipping dependency installation (--skip-deps)")
				return nil
			}
			return runInstaller()
		}},
		{name: "package", title: fmt.Sprintf("Packaging %s", filepath.Base(SpecFile)), run: func() error {
			return runBundler()
		}},
		{name: "verify", title: "Verifying artifact", run: func() error {
			var err error
			artifact, err = VerifyArtifact(ArtifactPath)
			return err
		}},
	}

	if !opts.Quiet {
		printBanner()
	}

	for i, step := range steps {
		if !opts.Quiet {
			cPrintf(colInfo, "[%d/%d] %s\n", i+1, len(steps), step.title)
		}
		start := time.Now()
		err := step.run()
		report.AddStep(step.name, time.Since(start), err)

		if err != nil {
			report.Finish(nil)
			if werr := report.Write(); werr != nil {
				debugf("failed to write build report: %v\n", werr)
			}
			cPrintf(colError, "Build failed at step %q: %v\n", step.name, err)
			return fmt.Errorf("%w: %s: %v", errStepFailed, step.name, err)
		}
	}

	report.Finish(artifact)
	if err := report.Write(); err != nil {
		debugf("failed to write build report: %v\n", err)
	}

	arrow()
	cPrintf(colSuccess, "Build completed in %s.\n", report.Duration.Round(time.Millisecond))
	arrow()
	cPrintf(colSuccess, "Artifact: %s (%d bytes, blake3 %s)\n",
		artifact.Path, artifact.Size, shortSum(artifact.B3Sum))

	if opts.Pause {
		WaitForKeypress()
	}
	return nil
}

// cleanStep refuses to silently wipe an output directory this tool never
// built into. A prior run leaves the artifact sums file behind; a
// non-empty output directory without one likely belongs to something
// else, so deleting it needs a confirmation or --force.
func cleanStep(opts BuildOptions) error {
	if !opts.Force {
		foreign, err := outputDirIsForeign()
		if err != nil {
			return err
		}
		if foreign {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("output directory %s is non-empty and not from a previous build; use --force to delete it", OutputDir)
			}
			cPrintf(colWarn, "Output directory %s is non-empty and does not look like a previous build.\n", OutputDir)
			if !askForConfirmation(colArrow, "Delete it anyway?") {
				return fmt.Errorf("clean of %s canceled", OutputDir)
			}
		}
	}
	return CleanBuildDirs(opts.Quiet)
}

func outputDirIsForeign() (bool, error) {
	entries, err := os.ReadDir(OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}
	if _, err := os.Stat(sumsPath(ArtifactPath)); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	return true, nil
}

func printBanner() {
	cPrintln(colSuccess, "================================")
	cPrintf(colSuccess, " tsutsumi %s - packaging %s\n", version, AppName)
	cPrintln(colSuccess, "================================")
}

// HandleBuildCommand parses the build command's flags and runs the
// pipeline.
func HandleBuildCommand(args []string) error {
	buildCmd := flag.NewFlagSet("build", flag.ExitOnError)
	skipDeps := buildCmd.Bool("skip-deps", false, "Skip the dependency installation step.")
	pause := buildCmd.Bool("pause", false, "Wait for a keypress before exiting.")
	quiet := buildCmd.Bool("quiet", false, "Suppress step banners and status lines.")
	verbose := buildCmd.Bool("verbose", false, "Echo installer and bundler output to the console.")
	nice := buildCmd.Bool("nice", false, "Run the external commands at idle priority.")
	force := buildCmd.Bool("force", false, "Delete a non-empty output directory without asking.")
	if err := buildCmd.Parse(args); err != nil {
		return err // Should not happen with flag.ExitOnError
	}

	Verbose = *verbose
	Exec.ApplyIdlePriority = *nice

	return RunBuild(BuildOptions{
		SkipDeps: *skipDeps,
		Pause:    *pause,
		Quiet:    *quiet,
		Force:    *force,
	})
}

// HandleDepsCommand runs the dependency install step alone.
func HandleDepsCommand() error {
	return runInstaller()
}

// HandlePackageCommand runs the bundler step alone, without cleaning or
// reinstalling dependencies.
func HandlePackageCommand() error {
	if err := runBundler(); err != nil {
		return err
	}
	artifact, err := VerifyArtifact(ArtifactPath)
	if err != nil {
		return err
	}
	arrow()
	cPrintf(colSuccess, "Artifact: %s (%d bytes, blake3 %s)\n",
		artifact.Path, artifact.Size, shortSum(artifact.B3Sum))
	return nil
}

// HandleVerifyCommand re-checks the artifact against its sums file.
func HandleVerifyCommand() error {
	return CheckArtifact(ArtifactPath)
}

// runInstaller reports the manifest contents, then runs the configured
// dependency installer against it.
func runInstaller() error {
	if err := ReportManifest(ManifestFile); err != nil {
		return err
	}

	argv, err := expandCommand(InstallerCmd)
	if err != nil {
		return err
	}
	debugf("installer argv: %q\n", argv)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = projectDir
	logPath, err := Exec.RunLogged(cmd, "deps")
	if err != nil {
		return fmt.Errorf("dependency installation failed (see %s): %w", logPath, err)
	}
	return nil
}

// runBundler invokes the packaging tool against the spec file. The
// configured default flags force a clean rebuild and suppress the
// bundler's interactive prompts.
func runBundler() error {
	argv, err := expandCommand(BundlerCmd)
	if err != nil {
		return err
	}
	debugf("bundler argv: %q\n", argv)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = projectDir
	logPath, err := Exec.RunLogged(cmd, "package")
	if err != nil {
		return fmt.Errorf("packaging failed (see %s): %w", logPath, err)
	}
	return nil
}
