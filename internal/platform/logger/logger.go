package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Components receive it via
// constructor injection and tag their records with a "component" attribute
// instead of mutating shared logger state.
func New(format string) *slog.Logger {
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, nil)
	default:
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
