package logutil

import (
	"log/slog"
	"time"
)

// ComponentLogger tags every record with the subsystem that wrote it.
// Loggers are immutable; the With methods return copies.
type ComponentLogger struct {
	l         *slog.Logger
	component string
}

// NewLogger returns a logger for component bound to the current global
// handler.
func NewLogger(component string) *ComponentLogger {
	return &ComponentLogger{l: Logger().With("component", component), component: component}
}

// Component returns the component name.
func (c *ComponentLogger) Component() string { return c.component }

// WithFields adds alternating key/value pairs.
func (c *ComponentLogger) WithFields(fields ...any) *ComponentLogger {
	return &ComponentLogger{l: c.l.With(fields...), component: c.component}
}

// WithApp scopes the logger to an application.
func (c *ComponentLogger) WithApp(name string) *ComponentLogger {
	return c.WithFields("app", name)
}

// WithOperation scopes the logger to a command step such as "upload".
func (c *ComponentLogger) WithOperation(op string) *ComponentLogger {
	return c.WithFields("operation", op)
}

// WithTarget scopes the logger to a control plane URL.
func (c *ComponentLogger) WithTarget(target string) *ComponentLogger {
	return c.WithFields("target", target)
}

// Since logs msg at debug level with the time elapsed since start.
func (c *ComponentLogger) Since(msg string, start time.Time, args ...any) {
	c.l.Debug(msg, append(args, "elapsed", time.Since(start).Round(time.Millisecond))...)
}

func (c *ComponentLogger) Debug(msg string, args ...any) { c.l.Debug(msg, args...) }
func (c *ComponentLogger) Info(msg string, args ...any)  { c.l.Info(msg, args...) }
func (c *ComponentLogger) Warn(msg string, args ...any)  { c.l.Warn(msg, args...) }
func (c *ComponentLogger) Error(msg string, args ...any) { c.l.Error(msg, args...) }
