// Package logging provides the minimal structured-logging interface
// used across elfaes. No third-party structured logger appears
// anywhere in the retrieved reference pack, so this is stdlib-backed
// by default; applications can supply their own Logger.
package logging

import (
	"context"
	"fmt"
	"log"
)

// Level is a log severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field is a single structured log attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Logger is the interface elfaes components log through.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// Std returns a Logger backed by the standard library's log package.
func Std() Logger {
	return &stdLogger{}
}

type stdLogger struct {
	fields []Field
}

func (l *stdLogger) log(level Level, msg string, fields []Field) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	log.Printf("[%s] %s%s", level, msg, formatFields(all))
}

func formatFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}
	s := " "
	for i, f := range fields {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", f.Key, f.Value)
	}
	return s
}

func (l *stdLogger) Debug(_ context.Context, msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *stdLogger) Info(_ context.Context, msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *stdLogger) Warn(_ context.Context, msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *stdLogger) Error(_ context.Context, msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *stdLogger) WithFields(fields ...Field) Logger {
	next := make([]Field, 0, len(l.fields)+len(fields))
	next = append(next, l.fields...)
	next = append(next, fields...)
	return &stdLogger{fields: next}
}

// Noop returns a Logger that discards everything, useful in tests.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) WithFields(...Field) Logger              { return noopLogger{} }
