package colors

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

var structuredDisabled atomic.Bool

// StructuredLogLevel represents log level for structured logs.
type StructuredLogLevel string

// Structured log levels.
const (
	LevelDebug StructuredLogLevel = "debug"
	LevelInfo  StructuredLogLevel = "info"
	LevelWarn  StructuredLogLevel = "warn"
	LevelError StructuredLogLevel = "error"
)

// StructuredLogEntry is one JSON event line.
type StructuredLogEntry struct {
	Timestamp string             `json:"timestamp"`
	Level     StructuredLogLevel `json:"level"`
	Component string             `json:"component"`
	Action    string             `json:"action"`
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	ID        string             `json:"id,omitempty"`
	Fields    map[string]any     `json:"fields,omitempty"`
}

// DisableStructuredLogging stops JSON events on stderr. The TUI calls this so
// events do not corrupt the screen.
func DisableStructuredLogging() {
	structuredDisabled.Store(true)
}

// EnableStructuredLogging re-enables JSON events.
func EnableStructuredLogging() {
	structuredDisabled.Store(false)
}

// StructuredLog writes a JSON event to stderr when debug mode is enabled.
// Events are always mirrored to the file logger at their own level.
func StructuredLog(level StructuredLogLevel, component, action, status string, err error, id string, fields map[string]any) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: component,
		Action:    action,
		Status:    status,
		ID:        id,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	mirrorStructured(entry)

	if !debugEnabled.Load() || structuredDisabled.Load() {
		return
	}
	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		write(true, "failed to marshal structured log: %v\n", marshalErr)
		return
	}
	write(true, "%s\n", data)
}

func mirrorStructured(e StructuredLogEntry) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return
	}
	args := []any{"component", e.Component, "action", e.Action, "status", e.Status}
	if e.ID != "" {
		args = append(args, "id", e.ID)
	}
	if e.Error != "" {
		args = append(args, "error", e.Error)
	}
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	msg := e.Component + "." + e.Action
	switch e.Level {
	case LevelError:
		l.Error(msg, args...)
	case LevelWarn:
		l.Warn(msg, args...)
	case LevelInfo:
		l.Info(msg, args...)
	default:
		l.Debug(msg, args...)
	}
}

// StructuredDebug logs a structured debug entry.
func StructuredDebug(component, action, status string, err error, id string, fields map[string]any) {
	StructuredLog(LevelDebug, component, action, status, err, id, fields)
}

// StructuredInfo logs a structured info entry.
func StructuredInfo(component, action, status string, err error, id string, fields map[string]any) {
	StructuredLog(LevelInfo, component, action, status, err, id, fields)
}

// StructuredWarn logs a structured warning entry.
func StructuredWarn(component, action, status string, err error, id string, fields map[string]any) {
	StructuredLog(LevelWarn, component, action, status, err, id, fields)
}

// StructuredError logs a structured error entry.
func StructuredError(component, action, status string, err error, id string, fields map[string]any) {
	StructuredLog(LevelError, component, action, status, err, id, fields)
}
