// Package logging provides the shared slog construction used by every
// meshcast process.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON logger tagged with component, matching the handler
// options every meshcast binary starts with.
func New(component string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With("component", component)
}
