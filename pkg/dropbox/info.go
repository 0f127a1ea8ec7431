package dropbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Desktop account kinds as keyed in the desktop client's info.json.
const (
	DesktopPersonal = "personal"
	DesktopBusiness = "business"
)

// DesktopAccount is one account linked to the desktop client.
type DesktopAccount struct {
	Kind             string `json:"-"`
	Path             string `json:"path"`
	Host             int64  `json:"host"`
	IsTeam           bool   `json:"is_team"`
	SubscriptionType string `json:"subscription_type"`
}

// infoCandidates lists where the desktop client may keep info.json.
func infoCandidates() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}

	candidates := []string{
		filepath.Join(home, ".dropbox", "info.json"),
		filepath.Join(home, "Library", "Application Support", "Dropbox", "info.json"),
	}
	for _, env := range []string{"APPDATA", "LOCALAPPDATA"} {
		if dir := os.Getenv(env); dir != "" {
			candidates = append(candidates, filepath.Join(dir, "Dropbox", "info.json"))
		}
	}
	return candidates, nil
}

// DetectRootPath finds the local folder of a desktop-synced account. An empty
// kind prefers the personal account and falls back to the business one.
func DetectRootPath(kind string) (string, error) {
	candidates, err := infoCandidates()
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, path := range candidates {
		accounts, err := readInfoJSON(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}
		acct, err := pickAccount(accounts, kind)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		return acct.Path, nil
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("dropbox desktop does not appear to be installed. "+
		"Verify that Dropbox Desktop is installed and that info.json exists (checked %s)",
		strings.Join(candidates, ", "))
}

// readInfoJSON returns the linked accounts, personal first.
func readInfoJSON(path string) ([]DesktopAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var info map[string]*DesktopAccount
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var accounts []DesktopAccount
	for _, kind := range []string{DesktopPersonal, DesktopBusiness} {
		if acct := info[kind]; acct != nil && acct.Path != "" {
			acct.Kind = kind
			accounts = append(accounts, *acct)
		}
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no personal or business path found in %s", path)
	}
	return accounts, nil
}

func pickAccount(accounts []DesktopAccount, kind string) (DesktopAccount, error) {
	if kind == "" {
		return accounts[0], nil
	}
	for _, acct := range accounts {
		if acct.Kind == kind {
			return acct, nil
		}
	}
	return DesktopAccount{}, fmt.Errorf("no %s account is linked to the desktop client", kind)
}

// ComputeRemotePath maps a local path inside the synced Dropbox folder to its
// API path. Both paths are resolved via EvalSymlinks first.
// Returns "" if localAbs equals the root (the API expects "" for root, not "/").
func ComputeRemotePath(localAbs, dropboxRoot string) (string, error) {
	resolvedLocal, err := filepath.EvalSymlinks(localAbs)
	if err != nil {
		return "", fmt.Errorf("resolving local path %s: %w", localAbs, err)
	}

	resolvedRoot, err := filepath.EvalSymlinks(dropboxRoot)
	if err != nil {
		return "", fmt.Errorf("resolving Dropbox root %s: %w", dropboxRoot, err)
	}

	rel, err := filepath.Rel(filepath.Clean(resolvedRoot), filepath.Clean(resolvedLocal))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("the local folder (%s) is not located inside the Dropbox folder (%s). Verify the path", localAbs, dropboxRoot)
	}
	if rel == "." {
		return "", nil
	}

	// macOS hands out NFD names; the API speaks NFC.
	return "/" + norm.NFC.String(filepath.ToSlash(rel)), nil
}
