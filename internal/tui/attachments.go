package tui

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// normalizeAttachmentPath cleans a user-supplied file path: file:// URIs
// (drag+drop into terminals), surrounding quotes, and ~ expansion.
func normalizeAttachmentPath(token string) (string, bool) {
	token = strings.TrimSpace(token)
	token = strings.Trim(token, `"'`)
	if token == "" {
		return "", false
	}

	if strings.HasPrefix(token, "file://") {
		u, err := url.Parse(token)
		if err != nil {
			return "", false
		}
		path := u.Path
		if path == "" && u.Opaque != "" {
			path = u.Opaque
		}
		if path == "" {
			return "", false
		}
		if decoded, err := url.PathUnescape(path); err == nil {
			path = decoded
		}
		token = path
	}

	if strings.HasPrefix(token, "~/") || token == "~" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			if token == "~" {
				token = home
			} else {
				token = filepath.Join(home, token[2:])
			}
		}
	}

	return filepath.Clean(token), true
}

// parseAttachCommand recognizes "/attach <path>" typed into the input.
func parseAttachCommand(input string) (string, bool) {
	input = strings.TrimSpace(input)
	rest, ok := strings.CutPrefix(input, "/attach ")
	if !ok {
		return "", false
	}
	return normalizeAttachmentPath(rest)
}

func isRegularFile(path string) bool {
	st, err := os.Stat(path)
	if err != nil {
		return false
	}
	return st.Mode().IsRegular()
}
