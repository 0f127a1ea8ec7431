// Package report renders listings and sync status for the command line.
package report

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/matcher"
)

// Entry is one line of a listing. JSON keys are alphabetically ordered.
type Entry struct {
	ContentHash    string     `json:"content_hash,omitempty"`
	ID             string     `json:"id,omitempty"`
	Kind           string     `json:"kind"`
	Path           string     `json:"path"`
	Rev            string     `json:"rev,omitempty"`
	ServerModified *time.Time `json:"server_modified,omitempty"`
	Size           *Size      `json:"size,omitempty"`
}

// EntryFrom flattens any metadata variant into an Entry.
func EntryFrom(md dropbox.Metadata) Entry {
	e := Entry{Path: md.Base().PathDisplay}
	switch m := md.(type) {
	case *dropbox.FileMetadata:
		size := Size(m.Size)
		modified := m.ServerModified
		e.Kind = dropbox.TagFile
		e.ID = m.ID
		e.Rev = m.Rev
		e.ContentHash = m.ContentHash
		e.Size = &size
		e.ServerModified = &modified
	case *dropbox.FolderMetadata:
		e.Kind = dropbox.TagFolder
		e.ID = m.ID
	case *dropbox.DeletedMetadata:
		e.Kind = dropbox.TagDeleted
	}
	return e
}

// String renders the entry as a single human-readable line.
func (e Entry) String() string {
	switch e.Kind {
	case dropbox.TagFile:
		return fmt.Sprintf("%10s  %s  %s", e.Size, e.ServerModified.Local().Format(time.DateTime), e.Path)
	case dropbox.TagFolder:
		return fmt.Sprintf("%10s  %19s  %s/", "-", "", e.Path)
	default:
		return fmt.Sprintf("%10s  %19s  %s", "deleted", "", e.Path)
	}
}

// Status summarizes how a local folder compares with Dropbox.
type Status struct {
	Failed     []string `json:"failed"`
	InSync     []string `json:"in_sync"`
	LocalOnly  []string `json:"local_only"`
	Modified   []string `json:"modified"`
	RemotePath string   `json:"remote_path"`
	RemoteOnly []string `json:"remote_only"`
}

// StatusFrom converts a matcher report, naming local files by path and
// remote ones by their display path.
func StatusFrom(remotePath string, r *matcher.Report) *Status {
	s := &Status{
		Failed:     []string{},
		InSync:     make([]string, 0, len(r.InSync)),
		LocalOnly:  r.LocalOnly,
		Modified:   make([]string, 0, len(r.Modified)),
		RemotePath: remotePath,
		RemoteOnly: make([]string, 0, len(r.RemoteOnly)),
	}
	if s.LocalOnly == nil {
		s.LocalOnly = []string{}
	}
	for _, p := range r.InSync {
		s.InSync = append(s.InSync, p.LocalPath)
	}
	for _, p := range r.Modified {
		s.Modified = append(s.Modified, p.LocalPath)
	}
	for _, f := range r.RemoteOnly {
		s.RemoteOnly = append(s.RemoteOnly, f.PathDisplay)
	}
	for path := range r.Failed {
		s.Failed = append(s.Failed, path)
	}
	slices.Sort(s.Failed)
	return s
}

// Size is a byte count that prints in binary units (e.g. 1.5 MiB) but
// serializes as a plain number.
type Size uint64

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(s), 10)), nil
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}
