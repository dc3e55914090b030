// Package colors provides colored console output mirrored to the structured logger.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Color constants
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

const checkmark = "✓"

// DebugEnv enables debug output when set to "1" or "true".
const DebugEnv = "PIXEDIT_DEBUG"

// Logger receives a copy of every console message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	debugEnabled atomic.Bool
	quiet        atomic.Bool

	loggerMu sync.RWMutex
	logger   Logger

	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func init() {
	if v := os.Getenv(DebugEnv); v == "1" || v == "true" {
		debugEnabled.Store(true)
	}
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetQuiet suppresses Info and Success output. Errors and warnings still print.
func SetQuiet(enabled bool) {
	quiet.Store(enabled)
}

// SetLogger sets the structured logger to mirror console output.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// SetOutput redirects console output. Nil writers restore the process streams.
func SetOutput(out, errOut io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

func mirror(fn func(Logger, string), msg string) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		fn(l, msg)
	}
}

func write(toErr bool, format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	w := stdout
	if toErr {
		w = stderr
	}
	if _, err := fmt.Fprintf(w, format, args...); err != nil && !toErr {
		// stdout is gone; stderr is the last resort.
		_, _ = fmt.Fprintf(stderr, "failed to print message: %v\n", err)
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger, m string) { l.Error(m) }, msg)
	write(true, "%sError:%s %s\n", Red, Reset, msg)
}

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger, m string) { l.Warn(m) }, msg)
	write(true, "%sWarning:%s %s\n", Yellow, Reset, msg)
}

// Success outputs a success message to stdout.
func Success(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger, m string) { l.Info(m) }, msg)
	if quiet.Load() {
		return
	}
	write(false, "%s%s%s %s\n", Green, checkmark, Reset, msg)
}

// Info outputs an informational message to stdout.
func Info(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger, m string) { l.Info(m) }, msg)
	if quiet.Load() {
		return
	}
	write(false, "%s%s%s\n", Blue, msg, Reset)
}

// Debug outputs a debug message to stderr when debug mode is enabled.
func Debug(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger, m string) { l.Debug(m) }, msg)
	if !debugEnabled.Load() {
		return
	}
	write(true, "%sDebug:%s %s\n", Cyan, Reset, msg)
}
