package tsutsumi

import (
	"flag"
	"fmt"
	"os"
)

// RemoveIfPresent deletes a directory tree if it exists. A missing
// target is not an error; the step must tolerate absence and leave the
// path untouched.
func RemoveIfPresent(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			debugf("skip cleanup, %s does not exist\n", path)
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("refusing to clean %s: not a directory", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

// CleanBuildDirs removes the previous output and intermediate-build
// directories. Used both as the first pipeline step and by the
// standalone clean command.
func CleanBuildDirs(quiet bool) error {
	for _, dir := range []string{OutputDir, WorkDir} {
		removed, err := RemoveIfPresent(dir)
		if err != nil {
			return err
		}
		if removed && !quiet {
			arrow()
			cPrintf(colSuccess, "Removed %s\n", dir)
		}
	}
	return nil
}

// HandleCleanCommand implements the 'tsutsumi clean' command.
func HandleCleanCommand(args []string) error {
	cleanCmd := flag.NewFlagSet("clean", flag.ExitOnError)
	force := cleanCmd.Bool("force", false, "Do not ask for confirmation.")
	if err := cleanCmd.Parse(args); err != nil {
		return err // Should not happen with flag.ExitOnError
	}

	// Nothing to confirm when neither directory exists.
	_, outErr := os.Stat(OutputDir)
	_, workErr := os.Stat(WorkDir)
	if os.IsNotExist(outErr) && os.IsNotExist(workErr) {
		arrow()
		cPrintln(colSuccess, "Nothing to clean.")
		return nil
	}

	if !*force {
		cPrintf(colWarn, "This will permanently delete %s and %s.\n", OutputDir, WorkDir)
		if !askForConfirmation(colArrow, "Are you sure you want to proceed?") {
			arrow()
			cPrintln(colSuccess, "Cleanup canceled.")
			return nil
		}
	}
	return CleanBuildDirs(false)
}
