package tsutsumi

import (
	"archive/tar"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// ArchiveOutput compresses the output directory into a distribution
// archive next to it. Supported formats: tar.gz, tar.xz, zip.
func ArchiveOutput(format string) (string, error) {
	if _, err := os.Stat(OutputDir); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist, run a build first", errNoArtifact, OutputDir)
		}
		return "", err
	}

	stamp := time.Now().Format("20060102")
	dest := filepath.Join(projectDir, fmt.Sprintf("%s-%s.%s", AppName, stamp, format))

	total, err := treeSize(OutputDir)
	if err != nil {
		return "", err
	}

	var bar *progressbar.ProgressBar
	if showProgress(total) {
		bar = progressbar.DefaultBytes(total, "archiving")
		defer bar.Finish()
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	switch format {
	case "tar.gz":
		gw := pgzip.NewWriter(out)
		if err := writeTar(gw, bar); err != nil {
			gw.Close()
			os.Remove(dest)
			return "", err
		}
		if err := gw.Close(); err != nil {
			os.Remove(dest)
			return "", err
		}
	case "tar.xz":
		xw, err := xz.NewWriter(out)
		if err != nil {
			os.Remove(dest)
			return "", fmt.Errorf("failed to init xz writer: %w", err)
		}
		if err := writeTar(xw, bar); err != nil {
			xw.Close()
			os.Remove(dest)
			return "", err
		}
		if err := xw.Close(); err != nil {
			os.Remove(dest)
			return "", err
		}
	case "zip":
		if err := writeZip(out, bar); err != nil {
			os.Remove(dest)
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported archive format %q (want tar.gz, tar.xz or zip)", format)
	}

	return dest, nil
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// writeTar streams the output directory into a tar archive on w. Entries
// are stored relative to the output directory so extraction yields the
// directory contents, not the dist/ prefix.
func writeTar(w io.Writer, bar *progressbar.ProgressBar) error {
	tw := tar.NewWriter(w)

	err := filepath.Walk(OutputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(OutputDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", path, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		hdr.Name = rel

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		var dst io.Writer = tw
		if bar != nil {
			dst = io.MultiWriter(tw, bar)
		}
		_, err = io.Copy(dst, f)
		return err
	})
	if err != nil {
		tw.Close()
		return fmt.Errorf("failed to create tar archive: %w", err)
	}
	return tw.Close()
}

func writeZip(w io.Writer, bar *progressbar.ProgressBar) error {
	zw := zip.NewWriter(w)

	err := filepath.Walk(OutputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(OutputDir, path)
		if err != nil {
			return err
		}
		if rel == "." || info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			debugf("skipping non-regular file in zip: %s\n", rel)
			return nil
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		var dst io.Writer = entry
		if bar != nil {
			dst = io.MultiWriter(entry, bar)
		}
		_, err = io.Copy(dst, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to create zip archive: %w", err)
	}
	return zw.Close()
}

// HandleArchiveCommand implements the 'tsutsumi archive' command.
func HandleArchiveCommand(args []string) error {
	archiveCmd := flag.NewFlagSet("archive", flag.ExitOnError)
	format := archiveCmd.String("format", "tar.gz", "Archive format: tar.gz, tar.xz or zip.")
	if err := archiveCmd.Parse(args); err != nil {
		return err
	}

	dest, err := ArchiveOutput(strings.TrimPrefix(*format, "."))
	if err != nil {
		return err
	}

	sum, err := ChecksumFile(dest)
	if err != nil {
		return err
	}

	arrow()
	cPrintf(colSuccess, "Archive created: %s (blake3 %s)\n", dest, shortSum(sum))
	return nil
}

// findLatestArchive locates the newest distribution archive for the app
// in the project directory.
func findLatestArchive() (string, error) {
	var candidates []string
	for _, ext := range []string{"tar.gz", "tar.xz", "zip"} {
		matches, err := filepath.Glob(filepath.Join(projectDir, fmt.Sprintf("%s-*.%s", AppName, ext)))
		if err != nil {
			return "", err
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", errNoArchive
	}

	latest := ""
	var latestMod time.Time
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = c
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", errNoArchive
	}
	return latest, nil
}
