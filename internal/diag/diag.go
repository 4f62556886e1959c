// Package diag provides the diagnostic text log: an append-only file of
// timestamped lines, enabled by ENABLE_DEBUG_LOGGING.
package diag

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const queueSize = 256

// Logger appends timestamped lines to a single file. A nil or disabled
// Logger is a no-op.
type Logger struct {
	path    string
	enabled bool
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	lines  chan string
	done   chan struct{}
}

// New creates a Logger writing to path. When enabled is false every method
// is a no-op and no file is created.
func New(path string, enabled bool, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{path: path, enabled: enabled, logger: logger, now: time.Now}
	if !enabled {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("diag: create log directory: %w", err)
	}

	l.lines = make(chan string, queueSize)
	l.done = make(chan struct{})
	go l.run()
	return l, nil
}

// Disabled returns a Logger that discards everything.
func Disabled() *Logger {
	return &Logger{}
}

// Enabled reports whether lines are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Startup writes msg synchronously. Use it for lines that must be on disk
// before the process continues.
func (l *Logger) Startup(msg string) {
	if !l.Enabled() {
		return
	}
	if err := l.append(l.format(msg)); err != nil {
		l.logger.Warn("diag: startup write failed", "error", err)
	}
}

// Printf queues a formatted line for the background writer.
func (l *Logger) Printf(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	line := l.format(fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.lines <- line:
	default:
		l.logger.Warn("diag: queue full, dropping line")
	}
}

// Close flushes queued lines and stops the writer.
func (l *Logger) Close() error {
	if !l.Enabled() {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.lines)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for line := range l.lines {
		if err := l.append(line); err != nil {
			l.logger.Warn("diag: write failed", "error", err)
		}
	}
}

func (l *Logger) format(msg string) string {
	return fmt.Sprintf("[%s] %s\n", l.now().UTC().Format(time.RFC3339), msg)
}

func (l *Logger) append(line string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
