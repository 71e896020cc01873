package filesystem

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ResolvePath converts a file:// URI or bare path to a clean local path.
// Percent-escapes in file URIs are decoded.
func ResolvePath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil && u.Path != "" {
			return filepath.Clean(u.Path)
		}
		return filepath.Clean(strings.TrimPrefix(uri, "file://"))
	}
	if uri == "" {
		return ""
	}
	return filepath.Clean(uri)
}
