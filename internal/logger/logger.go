// Package logger provides component-scoped slog loggers shared across the
// library. The default handler writes text to stderr at Info level; library
// consumers can swap in their own handler or raise verbosity globally.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu    sync.RWMutex
	level = new(slog.LevelVar)
	base  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// Base returns the current base logger.
func Base() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// SetBase replaces the base logger. Component loggers created afterwards
// derive from it; existing ones keep their old handler.
func SetBase(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	base = l
	mu.Unlock()
}

// SetLevel adjusts the level of the default handler. It has no effect on a
// handler installed via SetBase.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput redirects the default handler. It has no effect on a handler
// installed via SetBase.
func SetOutput(w io.Writer) {
	SetBase(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Component returns a logger tagged with a component attribute, e.g.
// "cipher" or "innertube".
func Component(name string) *slog.Logger {
	return Base().With("component", name)
}
