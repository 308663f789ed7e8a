package logger

import (
	"io"

	charmlog "github.com/charmbracelet/log"
)

// ConsoleLogger writes leveled, timestamped messages to a terminal.
type ConsoleLogger struct {
	l *charmlog.Logger
}

// NewConsoleLogger creates a terminal logger writing to w.
func NewConsoleLogger(w io.Writer, debug bool) *ConsoleLogger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	return &ConsoleLogger{
		l: charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02 15:04:05",
			Level:           level,
		}),
	}
}

// Debug logs a diagnostic message.
func (c *ConsoleLogger) Debug(format string, args ...interface{}) {
	c.l.Debugf(format, args...)
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(format string, args ...interface{}) {
	c.l.Infof(format, args...)
}

// Warning logs a warning message.
func (c *ConsoleLogger) Warning(format string, args ...interface{}) {
	c.l.Warnf(format, args...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(format string, args ...interface{}) {
	c.l.Errorf(format, args...)
}

// Close is a no-op; the writer is owned by the caller.
func (c *ConsoleLogger) Close() error {
	return nil
}

var _ Logger = (*ConsoleLogger)(nil)
