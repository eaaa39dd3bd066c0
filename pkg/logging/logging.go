// Package logging is the diagnostic logger shared by the commands. Command
// output proper never goes through it.
package logging

import (
	"io"
	"log"
)

// Level gates what a Logger prints.
type Level int

const (
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
)

// Logger prefixes messages with their severity. A nil *Logger discards
// everything, so libraries can accept one unconditionally.
type Logger struct {
	l     *log.Logger
	level Level
}

// New writes to w. verbosity counts -v flags: 0 prints warnings and info,
// 1 or more adds debug output.
func New(w io.Writer, verbosity int) *Logger {
	level := LevelInfo
	if verbosity > 0 {
		level = LevelDebug
	}
	return &Logger{l: log.New(w, "", 0), level: level}
}

// Discard returns a logger that prints nothing.
func Discard() *Logger { return New(io.Discard, 0) }

func (g *Logger) logf(level Level, tag, format string, args ...any) {
	if g == nil || level > g.level {
		return
	}
	g.l.Printf(tag+format, args...)
}

func (g *Logger) Warnf(format string, args ...any)  { g.logf(LevelWarn, "warning: ", format, args...) }
func (g *Logger) Infof(format string, args ...any)  { g.logf(LevelInfo, "", format, args...) }
func (g *Logger) Debugf(format string, args ...any) { g.logf(LevelDebug, "debug: ", format, args...) }

// Writer is the underlying destination, for streaming subprocess output.
func (g *Logger) Writer() io.Writer {
	if g == nil {
		return io.Discard
	}
	return g.l.Writer()
}
