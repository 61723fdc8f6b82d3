package tsutsumi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const releaseIndexName = "releases.json"

// ReleaseEntry is one published archive in the remote release index.
type ReleaseEntry struct {
	App      string    `json:"app"`
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	B3Sum    string    `json:"b3sum"`
	Uploaded time.Time `json:"uploaded"`
}

// ParseReleaseIndex decodes the remote index document.
func ParseReleaseIndex(data []byte) ([]ReleaseEntry, error) {
	var entries []ReleaseEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// HandlePublishCommand implements the 'tsutsumi publish' command: upload
// the newest distribution archive plus an updated release index to the
// configured bucket. With --cleanup, remote archives for this app that
// are no longer indexed are deleted.
func HandlePublishCommand(args []string, cfg *Config) error {
	ctx := context.Background()

	cleanup := false
	for _, arg := range args {
		if arg == "--cleanup" || arg == "-c" {
			cleanup = true
		}
	}

	client, err := NewReleaseClient(cfg)
	if err != nil {
		return err
	}

	archive, err := findLatestArchive()
	if err != nil {
		return fmt.Errorf("%w; run 'tsutsumi archive' first", err)
	}

	sum, err := ChecksumFile(archive)
	if err != nil {
		return err
	}
	info, err := os.Stat(archive)
	if err != nil {
		return err
	}

	arrow()
	cPrintf(colSuccess, "Fetching release index from bucket\n")
	var index []ReleaseEntry
	if data, err := client.DownloadFile(ctx, releaseIndexName); err != nil {
		debugf("remote index not found or error fetching: %v\n", err)
	} else {
		index, err = ParseReleaseIndex(data)
		if err != nil {
			return fmt.Errorf("failed to parse remote index: %w", err)
		}
	}

	name := filepath.Base(archive)
	entry := ReleaseEntry{
		App:      AppName,
		File:     name,
		Size:     info.Size(),
		B3Sum:    sum,
		Uploaded: time.Now().UTC(),
	}

	for _, existing := range index {
		if existing.File == name && existing.B3Sum == sum {
			arrow()
			cPrintf(colSuccess, "%s is already published, nothing to do\n", name)
			return nil
		}
	}

	arrow()
	cPrintf(colSuccess, "Uploading %s (%d bytes)\n", name, info.Size())
	data, err := os.ReadFile(archive)
	if err != nil {
		return err
	}
	if err := client.UploadFile(ctx, name, data); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	index = mergeIndex(index, entry)

	indexData, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	if err := client.UploadFile(ctx, releaseIndexName, indexData); err != nil {
		return fmt.Errorf("failed to upload release index: %w", err)
	}

	if cleanup {
		if err := cleanupRemote(ctx, client, index); err != nil {
			// Cleanup of stale remote archives is best effort.
			cPrintf(colWarn, "Remote cleanup incomplete: %v\n", err)
		}
	}

	arrow()
	cPrintf(colSuccess, "Published %s\n", name)
	return nil
}

// mergeIndex replaces any previous entry for the same file and keeps the
// index sorted newest first per app.
func mergeIndex(index []ReleaseEntry, entry ReleaseEntry) []ReleaseEntry {
	out := index[:0]
	for _, e := range index {
		if e.File != entry.File {
			out = append(out, e)
		}
	}
	out = append(out, entry)
	sort.Slice(out, func(i, j int) bool {
		if out[i].App != out[j].App {
			return out[i].App < out[j].App
		}
		return out[i].Uploaded.After(out[j].Uploaded)
	})
	return out
}

// cleanupRemote deletes archives of this app that the index no longer
// references.
func cleanupRemote(ctx context.Context, client *ReleaseClient, index []ReleaseEntry) error {
	names, err := client.ListFiles(ctx)
	if err != nil {
		return err
	}

	indexed := make(map[string]bool, len(index))
	for _, e := range index {
		indexed[e.File] = true
	}

	for _, name := range names {
		if name == releaseIndexName || indexed[name] {
			continue
		}
		// Only touch objects that look like this app's archives.
		if ok, _ := filepath.Match(AppName+"-*", name); !ok {
			continue
		}
		arrow()
		cPrintf(colWarn, "Deleting stale remote archive %s\n", name)
		if err := client.DeleteFile(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
