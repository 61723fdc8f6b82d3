package tsutsumi

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"lukechampine.com/blake3"
)

// progressThreshold is the file size above which hashing and archiving
// show a progress bar (when attached to a TTY).
const progressThreshold = 8 << 20

// ArtifactInfo describes the executable the bundler produced.
type ArtifactInfo struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	B3Sum string `json:"b3sum"`
}

func hashString(s string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// ChecksumFile computes the BLAKE3 checksum of a file, with a progress
// bar for large files on a TTY.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := blake3.New(32, nil)
	var src io.Reader = f
	if showProgress(info.Size()) {
		bar := progressbar.DefaultBytes(info.Size(), "hashing")
		src = io.TeeReader(f, bar)
		defer bar.Finish()
	}
	if _, err := io.Copy(h, src); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func showProgress(size int64) bool {
	return size >= progressThreshold && !NoColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// VerifyArtifact checks that the bundler actually produced the expected
// executable and records its size and checksum. A sums file is written
// next to the artifact so later runs (and the verify command) can detect
// corruption.
func VerifyArtifact(path string) (*ArtifactInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", errNoArtifact, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("expected artifact %s is a directory", path)
	}

	sum, err := ChecksumFile(path)
	if err != nil {
		return nil, err
	}

	art := &ArtifactInfo{Path: path, Size: info.Size(), B3Sum: sum}
	if err := writeSumsFile(art); err != nil {
		return nil, err
	}
	return art, nil
}

func sumsPath(artifact string) string {
	return artifact + ".b3"
}

// writeSumsFile writes "<hash>  <basename>", the usual sums format.
func writeSumsFile(art *ArtifactInfo) error {
	line := fmt.Sprintf("%s  %s\n", art.B3Sum, filepath.Base(art.Path))
	if err := os.WriteFile(sumsPath(art.Path), []byte(line), 0o644); err != nil {
		return fmt.Errorf("failed to write sums file: %w", err)
	}
	return nil
}

// CheckArtifact re-verifies an existing artifact against its sums file.
// Used by the standalone verify command.
func CheckArtifact(path string) error {
	data, err := os.ReadFile(sumsPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w for %s; run a build first", errNoSumsFile, path)
		}
		return err
	}

	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return fmt.Errorf("malformed sums file %s", sumsPath(path))
	}
	expected := fields[0]

	actual, err := ChecksumFile(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w for %s: expected %s, got %s", errSumMismatch, path, expected, actual)
	}

	arrow()
	cPrintf(colSuccess, "Artifact %s verified (blake3 %s)\n", path, shortSum(actual))
	return nil
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
