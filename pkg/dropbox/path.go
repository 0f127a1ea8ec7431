package dropbox

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Paths accepted by write routes.
	writePathRe = regexp.MustCompile(`^(/(.|[\r\n])*|id:.*|ns:[0-9]+(/.*)?)$`)
	// Read routes also accept the root and rev: references.
	readPathRe = regexp.MustCompile(`^(/(.|[\r\n])*|id:.*|rev:[0-9a-f]+|ns:[0-9]+(/.*)?)?$`)
)

// NormalizePath turns a user-supplied path into the form the API expects:
// NFC, a leading slash and no trailing slash. The root is
// returned as "" since list_folder rejects "/". id:, rev: and ns: references
// pass through untouched.
func NormalizePath(p string) string {
	if isReference(p) {
		return p
	}

	p = norm.NFC.String(p)
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p
}

// ValidatePath checks p against the path patterns of read routes
// (get_metadata, list_folder, download).
func ValidatePath(p string) error {
	if !readPathRe.MatchString(p) {
		return fmt.Errorf("invalid Dropbox path %q: must be empty or start with /, id:, rev: or ns:", p)
	}
	return nil
}

// ValidateWritePath checks p against the path patterns of write routes
// (upload, create_folder, delete), which reject the root and rev: references.
func ValidateWritePath(p string) error {
	if !writePathRe.MatchString(p) {
		return fmt.Errorf("invalid Dropbox path %q: must start with /, id: or ns:", p)
	}
	return nil
}

// JoinPath joins remote path elements and normalizes the result.
func JoinPath(elem ...string) string {
	return NormalizePath(path.Join(elem...))
}

func isReference(p string) bool {
	return strings.HasPrefix(p, "id:") || strings.HasPrefix(p, "rev:") || strings.HasPrefix(p, "ns:")
}
