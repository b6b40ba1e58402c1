package log

import (
	"fmt"
	"time"
)

// Logger is the structured logger every archivist component writes to.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value attached to a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field             { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Uint64(key string, value uint64) Field      { return Field{key, value} }
func Bool(key string, value bool) Field          { return Field{key, value} }
func Duration(key string, v time.Duration) Field { return Field{key, v} }

// Stringer logs v by its String method, e.g. a snapshot id or stop reason.
func Stringer(key string, v fmt.Stringer) Field { return Field{key, v} }

// Err attaches err under the "error" key.
func Err(err error) Field { return Field{"error", err} }

// NoopLogger discards everything. It is the default when no logger is given.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
