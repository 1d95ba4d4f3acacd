package obs

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestTextLoggerFormatsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf).WithClock(fixedClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)})
	log.Info("stage complete", "stage", "admissions_s1", "rows", 42)

	line := buf.String()
	if !strings.HasPrefix(line, "2026-08-01T12:00:00Z level=info msg=") {
		t.Fatalf("line = %q", line)
	}
	if !strings.Contains(line, `msg="stage complete"`) {
		t.Fatalf("message not quoted: %q", line)
	}
	if !strings.Contains(line, "stage=admissions_s1") || !strings.Contains(line, "rows=42") {
		t.Fatalf("key values missing: %q", line)
	}
}

func TestTextLoggerLevelsAndOddKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf).WithClock(fixedClock{t: time.Unix(0, 0).UTC()})
	log.Debug("d")
	log.Warn("w")
	log.Error("e", "dangling")

	out := buf.String()
	for _, want := range []string{"level=debug", "level=warn", "level=error", "!BADKEY=dangling"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}
