// Package logging provides the per-component leveled logger used
// throughout the proxy. Every call both writes a line to stderr and
// posts a bus.Event so the operator UI sees the same log text.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/AndreLaranjeira/ProxyGate/pkg/bus"
)

// Logger reports on behalf of a single named component (e.g. "engine",
// "explorer", "gate").
type Logger struct {
	context string
	bus     *bus.Bus
}

// New returns a Logger that tags its lines with context and, if b is
// non-nil, also publishes them as bus.Log events.
func New(context string, b *bus.Bus) *Logger {
	return &Logger{context: context, bus: b}
}

func (l *Logger) log(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s: %s", time.Now().Format(time.RFC3339), level, l.context, msg)
	fmt.Fprintln(os.Stderr, line)
	if l.bus != nil {
		l.bus.Publish(bus.Event{Kind: bus.Log, Text: line})
	}
}

// Infof reports routine progress.
func (l *Logger) Infof(format string, args ...any) {
	l.log("info", format, args...)
}

// Successf reports a completed operation.
func (l *Logger) Successf(format string, args ...any) {
	l.log("success", format, args...)
}

// Warnf reports a recoverable anomaly.
func (l *Logger) Warnf(format string, args ...any) {
	l.log("warning", format, args...)
}

// Errorf reports a failure.
func (l *Logger) Errorf(format string, args ...any) {
	l.log("error", format, args...)
}
