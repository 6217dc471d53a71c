package logger

import (
	"io"
	"log"
	"log/slog"
)

// New returns a text logger writing to w. Debug records are kept only when
// verbose is set.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	}))
}

// Install makes l the process default and routes the standard log package
// through it, so log.Printf calls from dependencies end up in the same stream.
func Install(l *slog.Logger) {
	slog.SetDefault(l)
	log.SetFlags(0)
}
