package dropbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRemotePath(t *testing.T) {
	t.Parallel()

	// Real directories so EvalSymlinks works.
	root := t.TempDir()
	subDir := filepath.Join(root, "Music", "Rock")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	nfdDir := filepath.Join(root, "Cafe\u0301")
	require.NoError(t, os.MkdirAll(nfdDir, 0o755))

	tests := []struct {
		name        string
		localAbs    string
		dropboxRoot string
		want        string
		wantErr     bool
	}{
		{
			name:        "equal paths",
			localAbs:    root,
			dropboxRoot: root,
			want:        "",
		},
		{
			name:        "sub-path",
			localAbs:    subDir,
			dropboxRoot: root,
			want:        "/Music/Rock",
		},
		{
			name:        "decomposed name",
			localAbs:    nfdDir,
			dropboxRoot: root,
			want:        "/Caf\u00e9",
		},
		{
			name:        "unrelated paths",
			localAbs:    t.TempDir(),
			dropboxRoot: root,
			wantErr:     true,
		},
		{
			name:        "missing path",
			localAbs:    filepath.Join(root, "nope"),
			dropboxRoot: root,
			wantErr:     true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := ComputeRemotePath(test.localAbs, test.dropboxRoot)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestReadInfoJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []DesktopAccount
		wantErr string
	}{
		{
			name:    "personal",
			content: `{"personal":{"path":"/home/ada/Dropbox","host":123,"is_team":false,"subscription_type":"Basic"}}`,
			want: []DesktopAccount{
				{Kind: DesktopPersonal, Path: "/home/ada/Dropbox", Host: 123, SubscriptionType: "Basic"},
			},
		},
		{
			name:    "business only",
			content: `{"business":{"path":"/home/ada/Dropbox (Acme)","is_team":true}}`,
			want: []DesktopAccount{
				{Kind: DesktopBusiness, Path: "/home/ada/Dropbox (Acme)", IsTeam: true},
			},
		},
		{
			name:    "both, personal first",
			content: `{"business":{"path":"/b"},"personal":{"path":"/p"}}`,
			want: []DesktopAccount{
				{Kind: DesktopPersonal, Path: "/p"},
				{Kind: DesktopBusiness, Path: "/b"},
			},
		},
		{
			name:    "no account",
			content: `{}`,
			wantErr: "no personal or business path",
		},
		{
			name:    "corrupt",
			content: `{`,
			wantErr: "parsing",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "info.json")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0o600))

			got, err := readInfoJSON(path)
			if test.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestDetectRootPath(t *testing.T) {
	// Not parallel: modifies the environment.
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", "")
	t.Setenv("LOCALAPPDATA", "")

	_, err := DetectRootPath("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear to be installed")

	dir := filepath.Join(home, ".dropbox")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.json"),
		[]byte(`{"personal":{"path":"/p"},"business":{"path":"/b"}}`), 0o600))

	got, err := DetectRootPath("")
	require.NoError(t, err)
	assert.Equal(t, "/p", got)

	got, err = DetectRootPath(DesktopBusiness)
	require.NoError(t, err)
	assert.Equal(t, "/b", got)

	_, err = DetectRootPath("family")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no family account")
}
