package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")
	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Debug("hello", "scenario", "mobility")
	if !strings.Contains(buf.String(), "scenario=mobility") {
		t.Fatalf("expected attribute in output, got %q", buf.String())
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger without stored logger")
	}
}
