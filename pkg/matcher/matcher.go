// Package matcher pairs files of the local Dropbox folder with their remote
// entries and tells which of them differ.
package matcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/worker"
)

// Names the desktop client never syncs.
var ignoredNames = map[string]bool{
	".ds_store":      true,
	"desktop.ini":    true,
	"thumbs.db":      true,
	"icon\r":         true,
	".dropbox":       true,
	".dropbox.attr":  true,
	".dropbox.cache": true,
}

// IsIgnored reports whether name is a file the desktop client does not sync.
func IsIgnored(name string) bool {
	return ignoredNames[strings.ToLower(name)]
}

// Pair is a local file matched to its Dropbox entry.
type Pair struct {
	LocalPath string
	Remote    *dropbox.FileMetadata
	LocalHash string
}

// Result holds the outcome of matching local files against Dropbox entries.
type Result struct {
	Matched         []Pair
	UnmatchedLocal  []string
	UnmatchedRemote []*dropbox.FileMetadata
}

// Report splits a Result by content.
type Report struct {
	InSync     []Pair
	Modified   []Pair
	LocalOnly  []string
	RemoteOnly []*dropbox.FileMetadata
	// Failed holds matched files that could not be hashed.
	Failed map[string]error
}

// ScanLocal walks dir recursively and returns the paths of syncable files.
func ScanLocal(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if IsIgnored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Match matches local files against Dropbox entries by relative path.
// remotePath is the Dropbox path localDir maps to ("" for the root).
// Comparison is case-insensitive and NFC-normalized, as Dropbox paths are.
func Match(localDir, remotePath string, localFiles []string, entries []*dropbox.FileMetadata) Result {
	remote := make(map[string]*dropbox.FileMetadata, len(entries))
	for _, e := range entries {
		if IsIgnored(e.Name) {
			continue
		}
		remote[strings.ToLower(norm.NFC.String(e.PathLower))] = e
	}

	matched := make(map[string]bool)
	var result Result

	prefix := strings.ToLower(norm.NFC.String(remotePath))

	for _, localPath := range localFiles {
		rel, err := filepath.Rel(localDir, localPath)
		if err != nil {
			result.UnmatchedLocal = append(result.UnmatchedLocal, localPath)
			continue
		}

		key := prefix + "/" + strings.ToLower(norm.NFC.String(filepath.ToSlash(rel)))
		if e, ok := remote[key]; ok {
			result.Matched = append(result.Matched, Pair{LocalPath: localPath, Remote: e})
			matched[key] = true
		} else {
			result.UnmatchedLocal = append(result.UnmatchedLocal, localPath)
		}
	}

	for key, e := range remote {
		if !matched[key] {
			result.UnmatchedRemote = append(result.UnmatchedRemote, e)
		}
	}
	sort.Slice(result.UnmatchedRemote, func(i, j int) bool {
		return result.UnmatchedRemote[i].PathLower < result.UnmatchedRemote[j].PathLower
	})

	return result
}

// Compare hashes every matched local file on a pool of n workers and sorts
// the pairs into in-sync and modified. hash is usually backed by a
// cache.HashCache.
func Compare(ctx context.Context, result Result, n int, hash func(string) (string, error), progress worker.ProgressFunc) *Report {
	report := &Report{
		LocalOnly:  result.UnmatchedLocal,
		RemoteOnly: result.UnmatchedRemote,
		Failed:     make(map[string]error),
	}

	hashes, errs := worker.Process(ctx, result.Matched, n, func(_ context.Context, p Pair) (string, error) {
		return hash(p.LocalPath)
	}, progress)

	for i, p := range result.Matched {
		if errs[i] != nil {
			report.Failed[p.LocalPath] = errs[i]
			continue
		}
		p.LocalHash = hashes[i]
		if p.LocalHash == p.Remote.ContentHash {
			report.InSync = append(report.InSync, p)
		} else {
			report.Modified = append(report.Modified, p)
		}
	}

	return report
}
