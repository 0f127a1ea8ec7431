package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/matcher"
)

func TestSize_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    Size
		want string
	}{
		{"bytes", Size(512), "512 B"},
		{"kibibytes", Size(1536), "1.5 KiB"},
		{"mebibytes", Size(150 * 1024 * 1024), "150 MiB"},
		{"zero", Size(0), "0 B"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, test.want, test.s.String())
		})
	}
}

func TestEntryFrom(t *testing.T) {
	t.Parallel()

	modified := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	file := &dropbox.FileMetadata{
		MetadataBase:   dropbox.MetadataBase{Name: "a.txt", PathDisplay: "/Docs/a.txt"},
		ID:             "id:1",
		Rev:            "0a",
		Size:           2048,
		ServerModified: modified,
		ContentHash:    "hash",
	}

	got, err := json.Marshal(EntryFrom(file))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content_hash":"hash","id":"id:1","kind":"file","path":"/Docs/a.txt","rev":"0a","server_modified":"2024-03-04T05:06:07Z","size":2048}`, string(got))

	folder := EntryFrom(&dropbox.FolderMetadata{MetadataBase: dropbox.MetadataBase{PathDisplay: "/Docs"}, ID: "id:2"})
	assert.Equal(t, dropbox.TagFolder, folder.Kind)
	assert.Contains(t, folder.String(), "/Docs/")

	deleted := EntryFrom(&dropbox.DeletedMetadata{MetadataBase: dropbox.MetadataBase{PathDisplay: "/old"}})
	assert.Equal(t, dropbox.TagDeleted, deleted.Kind)
	assert.Nil(t, deleted.Size)
	assert.Contains(t, deleted.String(), "deleted")
}

func TestStatusFrom(t *testing.T) {
	t.Parallel()

	r := &matcher.Report{
		InSync:     []matcher.Pair{{LocalPath: "/l/a"}},
		Modified:   []matcher.Pair{{LocalPath: "/l/b"}},
		RemoteOnly: []*dropbox.FileMetadata{{MetadataBase: dropbox.MetadataBase{PathDisplay: "/R/c"}}},
		Failed:     map[string]error{"/l/d": errors.New("denied")},
	}

	s := StatusFrom("/R", r)
	assert.Equal(t, []string{"/l/a"}, s.InSync)
	assert.Equal(t, []string{"/l/b"}, s.Modified)
	assert.Equal(t, []string{"/R/c"}, s.RemoteOnly)
	assert.Equal(t, []string{"/l/d"}, s.Failed)
	assert.Empty(t, s.LocalOnly)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	assert.Contains(t, buf.String(), `"local_only": []`)
}

func TestStatusFrom_FailedSorted(t *testing.T) {
	t.Parallel()

	failed := map[string]error{}
	for _, p := range []string{"/l/q", "/l/b", "/l/z", "/l/a", "/l/m", "/l/c"} {
		failed[p] = errors.New("unreadable")
	}

	// Map iteration order varies between runs, so check several times.
	for range 10 {
		s := StatusFrom("/R", &matcher.Report{Failed: failed})
		assert.Equal(t, []string{"/l/a", "/l/b", "/l/c", "/l/m", "/l/q", "/l/z"}, s.Failed)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, WriteFile(path, &Status{RemotePath: "/x"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"remote_path": "/x"`)

	require.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "status.json"), &Status{}))
}
