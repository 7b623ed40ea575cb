// Package logging builds the logrus logger shared by every component.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Tag is attached to every line so the tool's output stands out in mixed logs.
const Tag = "[testmgr]"

// Logger wraps a logrus logger with a switchable debug mode.
type Logger struct {
	*logrus.Logger
	base logrus.Level
}

// New creates a text logger writing to w at the given level name.
func New(w io.Writer, level string) (*Logger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		var err error
		if lvl, err = logrus.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	return &Logger{Logger: l, base: lvl}, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	l, _ := New(io.Discard, "panic")
	return l
}

// SetDebug raises the level to debug, or restores the configured level.
func (l *Logger) SetDebug(debug bool) {
	if debug && l.base < logrus.DebugLevel {
		l.SetLevel(logrus.DebugLevel)
		return
	}
	l.SetLevel(l.base)
}

// Debugging reports whether debug lines are written.
func (l *Logger) Debugging() bool {
	return l.IsLevelEnabled(logrus.DebugLevel)
}

// Component returns an entry tagged with the component name.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"tag": Tag, "component": name})
}
