package tsutsumi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupPipeline swaps the installer and bundler for shell stand-ins so
// the pipeline can run without pip or pyinstaller installed.
func setupPipeline(t *testing.T) {
	t.Helper()
	setupProject(t)
	Exec = NewExecutor(context.Background())

	writeManifest(t, projectDir, "requirements.txt", "opencv-python==4.8.1.78\nultralytics>=8.0\n")

	InstallerCmd = "sh -c 'exit 0'"
	BundlerCmd = fmt.Sprintf("sh -c 'mkdir -p %s && printf executable > %s'", OutputDir, ArtifactPath)
}

// captureStdout runs fn with stdout redirected and returns what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(out), runErr
}

func TestRunBuild_EndToEnd(t *testing.T) {
	setupPipeline(t)

	// A stale output directory from a previous run must be cleaned away.
	// The sums file left behind by that run marks the directory as ours.
	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(OutputDir, "stale"), []byte("old"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(sumsPath(ArtifactPath), []byte("deadbeef  app\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(ArtifactPath); err != nil {
		t.Fatalf("expected artifact at %s: %v", ArtifactPath, err)
	}
	if _, err := os.Stat(filepath.Join(OutputDir, "stale")); !os.IsNotExist(err) {
		t.Fatalf("expected stale output to be cleaned")
	}

	// The numbered step banners come in order, then the completion
	// message naming the artifact path.
	last := -1
	for i := 1; i <= 4; i++ {
		idx := strings.Index(out, fmt.Sprintf("[%d/4]", i))
		if idx == -1 {
			t.Fatalf("missing step banner %d in output:\n%s", i, out)
		}
		if idx < last {
			t.Fatalf("step banner %d out of order in output:\n%s", i, out)
		}
		last = idx
	}
	done := strings.Index(out, "Build completed")
	if done == -1 || done < last {
		t.Fatalf("completion message missing or out of order:\n%s", out)
	}
	if !strings.Contains(out, ArtifactPath) {
		t.Fatalf("completion output does not name the artifact path:\n%s", out)
	}

	report, err := LoadBuildReport()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Success {
		t.Fatalf("expected successful report: %+v", report)
	}
	if len(report.Steps) != 4 {
		t.Fatalf("expected 4 steps in report, got %d", len(report.Steps))
	}
	if report.Artifact == nil || report.Artifact.B3Sum == "" {
		t.Fatalf("expected artifact checksum in report")
	}
}

func TestRunBuild_RefusesForeignOutputDir(t *testing.T) {
	setupPipeline(t)
	// Non-empty output dir with no sums file from a prior build: without
	// a TTY to confirm on, the clean step must refuse rather than wipe it.
	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(OutputDir, "photos.db"), []byte("precious"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{})
	})
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "clean") {
		t.Fatalf("error does not name the clean step: %v", err)
	}
	if _, err := os.Stat(filepath.Join(OutputDir, "photos.db")); err != nil {
		t.Fatalf("expected foreign contents to survive: %v", err)
	}
}

func TestRunBuild_ForceCleansForeignOutputDir(t *testing.T) {
	setupPipeline(t)
	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(OutputDir, "photos.db"), []byte("precious"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{Force: true, Quiet: true})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(OutputDir, "photos.db")); !os.IsNotExist(err) {
		t.Fatalf("expected foreign contents removed with --force")
	}
	if _, err := os.Stat(ArtifactPath); err != nil {
		t.Fatalf("expected artifact: %v", err)
	}
}

func TestRunBuild_EmptyOutputDirNeedsNoForce(t *testing.T) {
	setupPipeline(t)
	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{Quiet: true})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunBuild_InstallerFailureHaltsPipeline(t *testing.T) {
	setupPipeline(t)
	InstallerCmd = "sh -c 'exit 3'"

	out, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{})
	})
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "deps") {
		t.Fatalf("error does not name the failed step: %v", err)
	}
	if strings.Contains(out, "Build completed") {
		t.Fatalf("completion banner printed despite failure:\n%s", out)
	}
	if _, err := os.Stat(ArtifactPath); !os.IsNotExist(err) {
		t.Fatalf("expected no artifact after failed install")
	}

	report, err := LoadBuildReport()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Success {
		t.Fatalf("expected failed report")
	}
	if len(report.Steps) != 2 || report.Steps[1].Status != "failed" {
		t.Fatalf("expected deps step recorded as failed: %+v", report.Steps)
	}
}

func TestRunBuild_BundlerFailureHaltsPipeline(t *testing.T) {
	setupPipeline(t)
	BundlerCmd = "sh -c 'exit 1'"

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{})
	})
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "package") {
		t.Fatalf("error does not name the failed step: %v", err)
	}
}

func TestRunBuild_MissingArtifactFailsVerify(t *testing.T) {
	setupPipeline(t)
	// Bundler exits 0 but produces nothing.
	BundlerCmd = "sh -c 'exit 0'"

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{})
	})
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "verify") {
		t.Fatalf("error does not name the verify step: %v", err)
	}
}

func TestRunBuild_SkipDeps(t *testing.T) {
	setupPipeline(t)
	// An installer that would fail proves the step was skipped.
	InstallerCmd = "sh -c 'exit 9'"

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{SkipDeps: true, Quiet: true})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(ArtifactPath); err != nil {
		t.Fatalf("expected artifact: %v", err)
	}
}

func TestRunBuild_StepLogsAreCaptured(t *testing.T) {
	setupPipeline(t)
	InstallerCmd = "sh -c 'echo installing deps'"

	_, err := captureStdout(t, func() error {
		return RunBuild(BuildOptions{Quiet: true})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(LogDir, "deps.log"))
	if err != nil {
		t.Fatalf("expected deps log: %v", err)
	}
	if !strings.Contains(string(data), "installing deps") {
		t.Fatalf("unexpected log contents: %q", data)
	}
}
