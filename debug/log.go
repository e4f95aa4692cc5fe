package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	out     io.Writer
	closer  io.Closer
	mu      sync.Mutex
	enabled bool
)

// Enable starts debug logging to path (truncating it).
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	out, closer = f, f
	enabled = true
	write("debug", "=== Debug logging started ===")
	return nil
}

// EnableWriter logs to w instead of a file. Used by tests and the stand-in server.
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out, closer = w, nil
	enabled = true
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		closer.Close()
	}
	out, closer = nil, nil
	enabled = false
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || out == nil {
		return
	}
	write(category, fmt.Sprintf(format, args...))
}

// Error logs err under category and, when Sentry is initialised, reports it there.
func Error(category string, err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	Log(category, "%s: %v", msg, err)

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("category", category)
			scope.SetExtra("message", msg)
			hub.CaptureException(err)
		})
	}
}

// Breadcrumb records a Sentry breadcrumb alongside the log line.
func Breadcrumb(category, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Log(category, "%s", msg)

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     "info",
			Category: category,
			Message:  msg,
			Level:    sentry.LevelInfo,
		})
	}
}

// write assumes mu is held
func write(category, msg string) {
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] %-10s %s\n", ts, category, msg)
	if f, ok := out.(*os.File); ok {
		f.Sync() // flush immediately so we see logs even on crash
	}
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
