package obs

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// TextLogger writes one line per event: RFC3339 timestamp, level, message,
// then key=value pairs. Writes are serialized so interleaved stages stay
// readable.
type TextLogger struct {
	mu    sync.Mutex
	w     io.Writer
	clock Clock
}

// NewTextLogger returns a TextLogger writing to w.
func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w, clock: SystemClock()}
}

// WithClock overrides the timestamp source, used by tests.
func (l *TextLogger) WithClock(c Clock) *TextLogger {
	l.clock = c
	return l
}

func (l *TextLogger) Debug(msg string, kv ...any) { l.emit("debug", msg, kv) }
func (l *TextLogger) Info(msg string, kv ...any)  { l.emit("info", msg, kv) }
func (l *TextLogger) Warn(msg string, kv ...any)  { l.emit("warn", msg, kv) }
func (l *TextLogger) Error(msg string, kv ...any) { l.emit("error", msg, kv) }

func (l *TextLogger) emit(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(l.clock.Now().Format(time.RFC3339))
	b.WriteString(" level=")
	b.WriteString(level)
	b.WriteString(" msg=")
	b.WriteString(quoteIfNeeded(msg))
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteString(" ")
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteString("=")
		b.WriteString(quoteIfNeeded(fmt.Sprint(kv[i+1])))
	}
	if len(kv)%2 != 0 {
		b.WriteString(" !BADKEY=")
		b.WriteString(quoteIfNeeded(fmt.Sprint(kv[len(kv)-1])))
	}
	b.WriteString("\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, b.String())
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
