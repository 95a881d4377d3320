package lbuffer

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the logging surface used by the lighting pass and the demo app.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// Named returns a logger for a sub-scope, writing to the same sinks
	// and sharing the debug switch.
	Named(scope string) Logger
}

// DefaultLogger writes info and debug lines to one sink and warnings and
// errors to another. Loggers returned by Named share both sinks and the
// debug switch with their parent.
type DefaultLogger struct {
	scope string
	debug *atomic.Bool
	out   *log.Logger
	err   *log.Logger
}

func NewDefaultLogger(scope string, debug bool) *DefaultLogger {
	return NewLoggerTo(scope, debug, os.Stdout, os.Stderr)
}

func NewLoggerTo(scope string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		scope: scope,
		debug: new(atomic.Bool),
		out:   log.New(out, "", flags),
		err:   log.New(errOut, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) Named(scope string) Logger {
	child := *l
	if l.scope != "" {
		child.scope = l.scope + "/" + scope
	} else {
		child.scope = scope
	}
	return &child
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) line(level, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.scope == "" {
		return level + " " + msg
	}
	return level + " " + l.scope + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.out.Print(l.line("DEBUG", format, args))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (n nopLogger) Named(string) Logger { return n }

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
