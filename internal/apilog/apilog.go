// Package apilog records outbound LLM requests and responses as per-session
// NDJSON files, api-{date}-session-{id}.ndjson.
package apilog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arguewith/arena/internal/llm"
)

// DefaultSessionKey names the process-wide session used when a request carries none.
const DefaultSessionKey = "default"

// Entry kinds.
const (
	KindRequest  = "request"
	KindResponse = "response"
)

// Entry is one NDJSON line.
type Entry struct {
	Kind          string      `json:"type"`
	RequestID     string      `json:"requestId"`
	SessionID     string      `json:"sessionId"`
	HTTPRequestID string      `json:"httpRequestId,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Endpoint      string      `json:"endpoint"`
	Method        string      `json:"method"`
	FunctionType  llm.Purpose `json:"functionType"`
	Data          any         `json:"data"`
}

// Config controls the logger.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type pendingLine struct {
	path string
	line []byte
}

// Logger owns the sessions and the background writer. A disabled Logger
// hands out sessions that still generate request ids but write nothing.
type Logger struct {
	enabled bool
	dir     string
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	closed   bool
	sessions map[string]*Session
	queue    chan pendingLine
	done     chan struct{}
}

// New creates a Logger and starts its writer when enabled.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		enabled:  cfg.Enabled,
		dir:      cfg.Dir,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	if !cfg.Enabled {
		return l, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("apilog: create log directory: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}
	l.queue = make(chan pendingLine, size)
	l.done = make(chan struct{})
	go l.run()
	return l, nil
}

// Disabled returns a Logger that writes nothing.
func Disabled() *Logger {
	l, _ := New(Config{}, nil)
	return l
}

// Enabled reports whether entries reach disk.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// StartSession opens a fresh session under key, replacing any previous one.
func (l *Logger) StartSession(key string) *Session {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	s := &Session{
		id:       id,
		path:     filepath.Join(l.dir, fmt.Sprintf("api-%s-session-%s.ndjson", l.now().UTC().Format("2006-01-02"), id)),
		owner:    l,
		purposes: make(map[string]llm.Purpose),
	}

	l.mu.Lock()
	l.sessions[key] = s
	l.mu.Unlock()

	if l.enabled {
		l.logger.Debug("API log session started", "key", key, "session_id", id, "path", s.path)
	}
	return s
}

// Session returns the session registered under key, or nil.
func (l *Logger) Session(key string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[key]
}

// EndSession forgets the session under key. Its file stays on disk.
func (l *Logger) EndSession(key string) {
	l.mu.Lock()
	delete(l.sessions, key)
	l.mu.Unlock()
}

// Default returns the process-wide session, starting it on first use.
func (l *Logger) Default() *Session {
	if s := l.Session(DefaultSessionKey); s != nil {
		return s
	}
	return l.StartSession(DefaultSessionKey)
}

// Close flushes queued entries and stops the writer.
func (l *Logger) Close() error {
	if !l.enabled {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *Logger) enqueue(path string, e Entry) {
	if !l.enabled {
		return
	}
	line, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("apilog: encode entry failed", "request_id", e.RequestID, "error", err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- pendingLine{path: path, line: line}:
	default:
		l.logger.Warn("apilog: queue full, dropping entry",
			"request_id", e.RequestID,
			"queue_len", len(l.queue),
		)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for p := range l.queue {
		if err := appendLine(p.path, p.line); err != nil {
			l.logger.Warn("apilog: write failed", "path", p.path, "error", err)
		}
	}
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
