// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package log

// API inspired by zerolog https://github.com/rs/zerolog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Level defines log level, ordered least to most verbose.
type Level uint8

// Logging levels.
const (
	LevelOff Level = iota
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "OFF"
	}
}

// Log defines a single log entry.
type Log struct {
	Level Level
	Time  time.Time
	Msg   string
	Src   string
}

// Event defines a log event under construction. You must call Msg or
// Msgf on it for anything to be emitted.
type Event struct {
	level  Level
	time   time.Time
	src    string
	logger *Logger
}

// Src sets the event's source component.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// Msg sends the event with msg as the message field.
func (e *Event) Msg(msg string) {
	e.logger.write(Log{
		Level: e.level,
		Time:  e.time,
		Msg:   msg,
		Src:   e.src,
	})
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

// Logger prints logs at or below a configured verbosity to stdout.
// Safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   *os.File
}

// New returns a Logger that prints everything at level and below.
func New(level Level) *Logger {
	return &Logger{level: level, out: os.Stdout}
}

func (l *Logger) write(entry Log) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.Level > l.level {
		return
	}
	fmt.Fprintln(l.out, format(entry))
}

func format(entry Log) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(entry.Level.String())
	b.WriteString("] ")
	if entry.Src != "" {
		b.WriteString(entry.Src)
		b.WriteString(": ")
	}
	b.WriteString(entry.Msg)
	return b.String()
}

// Error starts a new message with error level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Error() *Event { return l.newEvent(LevelError) }

// Warn starts a new message with warn level.
func (l *Logger) Warn() *Event { return l.newEvent(LevelWarning) }

// Info starts a new message with info level.
func (l *Logger) Info() *Event { return l.newEvent(LevelInfo) }

// Debug starts a new message with debug level.
func (l *Logger) Debug() *Event { return l.newEvent(LevelDebug) }

// Trace starts a new message with trace level, used for the decoder's
// per-line stderr output and similar high-volume detail.
func (l *Logger) Trace() *Event { return l.newEvent(LevelTrace) }

func (l *Logger) newEvent(level Level) *Event {
	return &Event{level: level, time: time.Now(), logger: l}
}

// ParseLevel maps a config/CLI string to a Level, defaulting to
// LevelInfo on an unrecognized value.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LevelOff
	case "error":
		return LevelError
	case "warning", "warn":
		return LevelWarning
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}
