package testutil

import (
	"io"
	"log/slog"
)

// NewLogger returns a logger that discards output, for wiring handlers and
// services under test.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
