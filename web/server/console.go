package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultConsoleSize is how many messages a console keeps
const DefaultConsoleSize = 200

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warning", "error"
}

// console is the message ring shared by a handler and every handler derived from it
type console struct {
	mu       sync.Mutex
	messages []ConsoleMessage
	next     int
	full     bool
}

func (c *console) add(msg ConsoleMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[c.next] = msg
	c.next = (c.next + 1) % len(c.messages)
	if c.next == 0 {
		c.full = true
	}
}

func (c *console) snapshot() []ConsoleMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.full {
		return append([]ConsoleMessage(nil), c.messages[:c.next]...)
	}
	out := make([]ConsoleMessage, 0, len(c.messages))
	out = append(out, c.messages[c.next:]...)
	return append(out, c.messages[:c.next]...)
}

// ConsoleHandler is a slog.Handler that keeps the most recent records for the
// web console and forwards every record to an optional next handler.
type ConsoleHandler struct {
	level slog.Leveler
	next  slog.Handler
	buf   *console
	attrs string
}

// NewConsoleHandler creates a console keeping up to size messages at or above
// level. next may be nil.
func NewConsoleHandler(size int, level slog.Leveler, next slog.Handler) *ConsoleHandler {
	if size <= 0 {
		size = DefaultConsoleSize
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		level: level,
		next:  next,
		buf:   &console{messages: make([]ConsoleMessage, size)},
	}
}

// Enabled implements slog.Handler
func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level.Level() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		var sb strings.Builder
		sb.WriteString(r.Message)
		sb.WriteString(h.attrs)
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
			return true
		})
		h.buf.add(ConsoleMessage{
			Message:   sb.String(),
			Timestamp: r.Time,
			Level:     levelName(r.Level),
		})
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	clone.attrs = sb.String()
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

// WithGroup implements slog.Handler. Groups are flattened in the console.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}

// Messages returns the retained messages, oldest first
func (h *ConsoleHandler) Messages() []ConsoleMessage {
	return h.buf.snapshot()
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warning"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
