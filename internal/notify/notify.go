// Package notify delivers short user-facing messages about workflow events.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/johnrirwin/gemlisting/internal/logging"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message shown to the user
type Notification struct {
	Level   Level
	Title   string
	Message string
	At      time.Time
}

// Notifier receives notifications
type Notifier interface {
	Notify(n Notification)
}

// Success sends a success notification
func Success(n Notifier, title, message string) {
	send(n, LevelSuccess, title, message)
}

// Info sends an informational notification
func Info(n Notifier, title, message string) {
	send(n, LevelInfo, title, message)
}

// Warning sends a warning notification
func Warning(n Notifier, title, message string) {
	send(n, LevelWarning, title, message)
}

// Error sends an error notification
func Error(n Notifier, title, message string) {
	send(n, LevelError, title, message)
}

func send(n Notifier, level Level, title, message string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Title: title, Message: message, At: time.Now()})
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (l *LogNotifier) Notify(n Notification) {
	fields := logging.WithFields(map[string]interface{}{
		"notification": string(n.Level),
		"title":        n.Title,
		"message":      n.Message,
	})
	switch n.Level {
	case LevelError:
		l.logger.Error(n.Title, fields)
	case LevelWarning:
		l.logger.Warn(n.Title, fields)
	default:
		l.logger.Info(n.Title, fields)
	}
}

// WriterNotifier prints one line per notification, for terminal use
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier printing to w
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier
func (p *WriterNotifier) Notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Message == "" {
		fmt.Fprintf(p.w, "[%s] %s\n", n.Level, n.Title)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(n Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Notifier
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications in arrival order
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// WithLevel returns the recorded notifications of one level
func (r *Recorder) WithLevel(level Level) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// Reset drops everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}
