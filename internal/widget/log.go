package widget

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// NewLogger writes JSON lines to a file under root. The TUI owns the
// terminal, so nothing may log to stdout or stderr; if the file cannot be
// opened the logger is a no-op and the widget keeps running.
func NewLogger(root string) zerolog.Logger {
	if root == "" {
		root = DefaultStorageRoot()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return zerolog.Nop()
	}
	f, err := os.OpenFile(filepath.Join(root, "widget.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop()
	}
	return zerolog.New(f).With().Timestamp().Logger()
}
