package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Credentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string // empty means no file
		want    *Credentials
		wantErr string
	}{
		{
			name: "nothing saved",
		},
		{
			name:    "saved by login",
			content: `{"app_key":"key1","app_secret":"secret1","refresh_token":"token1","account_id":"dbid:abc"}`,
			want: &Credentials{
				AppKey:       "key1",
				AppSecret:    "secret1",
				RefreshToken: "token1",
				AccountID:    "dbid:abc",
			},
		},
		{
			name:    "saved before account ids were recorded",
			content: `{"app_key":"key1","app_secret":"secret1","refresh_token":"token1"}`,
			want:    &Credentials{AppKey: "key1", AppSecret: "secret1", RefreshToken: "token1"},
		},
		{
			name:    "corrupt file",
			content: "not json",
			wantErr: "parsing credentials file",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if test.content != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, credsFile), []byte(test.content), filePerms))
			}

			got, err := NewStore(dir).Credentials()

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

func TestStore_SaveAndRemoveCredentials(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "nested", "dbx"))
	creds := &Credentials{AppKey: "key1", AppSecret: "secret1", RefreshToken: "token1", AccountID: "dbid:abc"}

	require.NoError(t, store.SaveCredentials(creds))

	info, err := os.Stat(filepath.Join(store.Dir(), credsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(dirPerms), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	loaded, err := store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)

	// Saving again replaces the file.
	creds.RefreshToken = "token2"
	require.NoError(t, store.SaveCredentials(creds))
	loaded, err = store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "token2", loaded.RefreshToken)

	require.NoError(t, store.RemoveCredentials())
	loaded, err = store.Credentials()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.RemoveCredentials(), "removing twice is fine")
}

func TestStore_SaveIncomplete(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.Error(t, store.SaveCredentials(&Credentials{AppKey: "k"}))

	loaded, err := store.Credentials()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCredentials_Complete(t *testing.T) {
	t.Parallel()

	var missing *Credentials
	assert.False(t, missing.Complete())
	assert.False(t, (&Credentials{AppKey: "k", AppSecret: "s"}).Complete())
	assert.True(t, (&Credentials{AppKey: "k", AppSecret: "s", RefreshToken: "r"}).Complete())
}
