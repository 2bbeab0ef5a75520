package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", false)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown", "n", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestQuiet(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", true)
	if err != nil {
		t.Fatal(err)
	}
	l.Warn("nope")
	if buf.Len() != 0 {
		t.Fatalf("quiet logger wrote %q", buf.String())
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "chatty", false); err == nil {
		t.Fatal("expected error")
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(&buf, "info", false)
	ctx := Attach(context.Background(), l)
	log.FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("logger not carried: %q", buf.String())
	}
}
