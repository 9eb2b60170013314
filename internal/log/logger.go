// SPDX-License-Identifier: MIT
// Package log is a small process-wide leveled logger.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name (case-insensitive) to a Level. Unknown
// names yield LevelInfo and false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	level  atomic.Uint32
	logger atomic.Pointer[stdlog.Logger]
	exit   = os.Exit
)

func init() {
	level.Store(uint32(LevelInfo))
	SetOutput(os.Stderr)
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) { level.Store(uint32(l)) }

// GetLevel returns the minimum level that is written.
func GetLevel() Level { return Level(level.Load()) }

// Enabled reports whether messages at l are currently written.
func Enabled(l Level) bool { return l >= GetLevel() }

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	logger.Store(stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds))
}

// %-5s keeps messages aligned across level names.
func write(l Level, msg string) {
	logger.Load().Printf("[%-5s] %s", l, msg)
}

func Debugf(format string, v ...any) {
	if Enabled(LevelDebug) {
		write(LevelDebug, fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...any) {
	if Enabled(LevelInfo) {
		write(LevelInfo, fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...any) {
	if Enabled(LevelWarn) {
		write(LevelWarn, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...any) {
	if Enabled(LevelError) {
		write(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf always logs, then exits the process with status 1.
func Fatalf(format string, v ...any) {
	write(LevelFatal, fmt.Sprintf(format, v...))
	exit(1)
}
