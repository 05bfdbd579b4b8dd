// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the leveled Logger used throughout empstats, with
// implementations that write to an io.Writer, to a test's Logf, to an
// in-memory buffer or nowhere.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RFC3339UsecTz0 is the timestamp layout of written log lines.
const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Logger represents an interface for a shared logger.
type Logger interface {
	Printf(format string, v ...interface{}) // logs at info level
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Panicf(format string, v ...interface{})
	// WithPrefix returns a new Logger with the same configuration as
	// this one, but all logs will have the given prefix.
	WithPrefix(prefix string) Logger
}

// Level is a log severity. Lower levels are more severe.
type Level int

const (
	LevelPanic Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{"panic", "error", "warn", "info", "debug"}

func (l Level) String() string {
	if l < LevelPanic || l > LevelDebug {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// tag is the fixed width marker written before each message.
func (l Level) tag() string {
	return fmt.Sprintf("%-7s", strings.ToUpper(l.String())+":")
}

// ParseLevel returns the Level named s, ignoring case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, errors.Errorf("unknown log level %q, expected one of %s", s, strings.Join(levelNames[:], ", "))
}

// emitter is the one Logger implementation. It filters by level, applies
// the prefix and hands finished messages to emit.
type emitter struct {
	max    Level
	prefix string
	emit   func(msg string)
}

func (e *emitter) logf(level Level, format string, v []interface{}) {
	if level > e.max {
		return
	}
	e.emit(e.prefix + level.tag() + fmt.Sprintf(format, v...))
}

func (e *emitter) Printf(format string, v ...interface{}) { e.logf(LevelInfo, format, v) }
func (e *emitter) Debugf(format string, v ...interface{}) { e.logf(LevelDebug, format, v) }
func (e *emitter) Infof(format string, v ...interface{})  { e.logf(LevelInfo, format, v) }
func (e *emitter) Warnf(format string, v ...interface{})  { e.logf(LevelWarn, format, v) }
func (e *emitter) Errorf(format string, v ...interface{}) { e.logf(LevelError, format, v) }
func (e *emitter) Panicf(format string, v ...interface{}) { e.logf(LevelPanic, format, v) }

func (e *emitter) WithPrefix(prefix string) Logger {
	return &emitter{max: e.max, prefix: e.prefix + prefix, emit: e.emit}
}

// NopLogger represents a Logger that doesn't do anything.
var NopLogger Logger = &emitter{max: -1, emit: func(string) {}}

// lineWriter writes timestamped lines. Loggers derived with WithPrefix share
// it, so their lines never interleave.
type lineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func (lw *lineWriter) writeLine(msg string) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	// Nowhere to report a failed log write.
	_, _ = io.WriteString(lw.w, lw.now().UTC().Format(RFC3339UsecTz0)+" "+msg)
}

// NewLevelLogger returns a Logger writing messages at level and more
// severe to w, one timestamped line each.
func NewLevelLogger(w io.Writer, level Level) Logger {
	lw := &lineWriter{w: w, now: time.Now}
	return &emitter{max: level, emit: lw.writeLine}
}

// NewStandardLogger returns a Logger which writes info level and above.
func NewStandardLogger(w io.Writer) Logger {
	return NewLevelLogger(w, LevelInfo)
}

// NewVerboseLogger returns a Logger which also writes debug messages.
func NewVerboseLogger(w io.Writer) Logger {
	return NewLevelLogger(w, LevelDebug)
}

// NewLogger picks between the standard and verbose loggers.
func NewLogger(w io.Writer, verbose bool) Logger {
	if verbose {
		return NewVerboseLogger(w)
	}
	return NewStandardLogger(w)
}

// Logfer is a thing that has only a Logf() method, like for instance,
// testing.T or testing.B.
type Logfer interface {
	Logf(format string, v ...interface{})
}

// NewLogfLogger returns a Logger that logs every level through l.
func NewLogfLogger(l Logfer) Logger {
	return &emitter{max: LevelDebug, emit: func(msg string) { l.Logf("%s", msg) }}
}

// BufferLogger represents a test Logger that holds info and more severe
// messages in a buffer for review.
type BufferLogger struct {
	Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewBufferLogger returns a new instance of BufferLogger.
func NewBufferLogger() *BufferLogger {
	b := &BufferLogger{}
	b.Logger = &emitter{max: LevelInfo, emit: b.append}
	return b
}

func (b *BufferLogger) append(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(msg)
	b.buf.WriteByte('\n')
}

// WithPrefix returns b; tests read one shared buffer.
func (b *BufferLogger) WithPrefix(prefix string) Logger {
	return b
}

// String returns everything logged so far.
func (b *BufferLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
