// Package config keeps dbx state on disk: the OAuth2 credentials saved by
// "dbx login" and the directory other caches live in.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	appDir    = "dbx"
	credsFile = "credentials.json"
	dirPerms  = 0o700
	filePerms = 0o600
)

// Credentials are what a refresh-token client needs, plus the account they
// were issued for.
type Credentials struct {
	AppKey       string `json:"app_key"`
	AppSecret    string `json:"app_secret"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id,omitempty"`
}

// Complete reports whether every field needed to refresh a token is set.
func (c *Credentials) Complete() bool {
	return c != nil && c.AppKey != "" && c.AppSecret != "" && c.RefreshToken != ""
}

// Store is a dbx state directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Nothing is created until a write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Open returns the store under the user config directory.
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("determining config directory: %w", err)
	}
	return NewStore(filepath.Join(dir, appDir)), nil
}

// Dir is the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Credentials reads the saved credentials. It returns (nil, nil) when none
// have been saved.
func (s *Store) Credentials() (*Credentials, error) {
	data, err := os.ReadFile(s.credsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	creds := new(Credentials)
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials file %s: %w", s.credsPath(), err)
	}
	return creds, nil
}

// SaveCredentials replaces the saved credentials. The file is written next to
// its final name and renamed, so a crash never leaves half a token behind.
func (s *Store) SaveCredentials(creds *Credentials) error {
	if !creds.Complete() {
		return errors.New("refusing to save incomplete credentials")
	}
	if err := os.MkdirAll(s.dir, dirPerms); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, credsFile+".*")
	if err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := tmp.Chmod(filePerms); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.credsPath()); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// RemoveCredentials forgets the saved credentials. A missing file is not an error.
func (s *Store) RemoveCredentials() error {
	if err := os.Remove(s.credsPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

func (s *Store) credsPath() string {
	return filepath.Join(s.dir, credsFile)
}
