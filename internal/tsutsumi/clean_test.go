package tsutsumi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveIfPresent_MissingTargetIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist")

	removed, err := RemoveIfPresent(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatalf("expected nothing to be removed")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected path to stay absent")
	}
}

func TestRemoveIfPresent_DeletesTreeWithArbitraryContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dist")
	if err := os.MkdirAll(filepath.Join(target, "nested", "deep"), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "nested", "deep", "file.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := RemoveIfPresent(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected target to no longer exist")
	}
}

func TestRemoveIfPresent_RefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist")
	if err := os.WriteFile(path, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := RemoveIfPresent(path); err == nil {
		t.Fatalf("expected error for non-directory target")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to survive: %v", err)
	}
}

func TestCleanBuildDirs_RemovesBothTargets(t *testing.T) {
	setupProject(t)
	for _, d := range []string{OutputDir, WorkDir} {
		if err := os.MkdirAll(filepath.Join(d, "stuff"), 0o755); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := CleanBuildDirs(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range []string{OutputDir, WorkDir} {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be gone", d)
		}
	}
}

func TestCleanBuildDirs_ToleratesAbsentDirs(t *testing.T) {
	setupProject(t)
	if err := CleanBuildDirs(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
