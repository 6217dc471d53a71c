package logger

import (
	"bytes"
	"log"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.verbose)

			l.Debug("[TOKEN] renewing access token")
			l.Info("[TOKEN] access token renewed", "elapsed", "12ms")

			out := buf.String()
			if got := strings.Contains(out, "renewing access token"); got != tt.wantDebug {
				t.Errorf("Expected debug record present=%t, got output %q", tt.wantDebug, out)
			}
			if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "elapsed=12ms") {
				t.Errorf("Expected structured info record, got %q", out)
			}
			if got := strings.Contains(out, "source="); got != tt.verbose {
				t.Errorf("Expected source present=%t, got output %q", tt.verbose, out)
			}
		})
	}
}

func TestInstall(t *testing.T) {
	defer log.SetOutput(log.Writer())
	previous := slog.Default()
	defer slog.SetDefault(previous)
	defer log.SetFlags(log.Flags())

	var buf bytes.Buffer
	Install(New(&buf, false))

	log.Printf("[CONFIG] Loaded %d settings", 3)
	slog.Info("default logger")

	out := buf.String()
	if !strings.Contains(out, "[CONFIG] Loaded 3 settings") {
		t.Errorf("Expected standard log output to be routed, got %q", out)
	}
	if !strings.Contains(out, "default logger") {
		t.Errorf("Expected slog default to be replaced, got %q", out)
	}
}
