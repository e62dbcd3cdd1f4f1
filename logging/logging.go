// Package logging provides the colored, level-tagged logger used for every
// operational log line emitted by the socket engine and its demo binaries.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps a slog.Logger with the same verb set the rest of this
// codebase's call sites expect: Info, Warn, Error, Debug, Success, plus
// Section/Banner for startup output.
type Logger struct {
	slog *slog.Logger
}

// Default is the process-wide logger, writing to stderr at info level.
var Default = New(os.Stderr, slog.LevelInfo)

// New builds a Logger backed by a tint handler writing to w.
func New(w *os.File, level slog.Level) *Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	return &Logger{slog: slog.New(handler)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.slog.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, args...))
}

// Fatal logs at error level and terminates the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Success logs at info level with a checkmark prefix, matching the
// reference logger's dedicated success verb.
func (l *Logger) Success(format string, args ...interface{}) {
	l.slog.LogAttrs(context.Background(), slog.LevelInfo, "✓ "+fmt.Sprintf(format, args...))
}

// Section prints a boxed section header, used to separate startup phases in
// the demo binaries.
func (l *Logger) Section(title string) {
	border := "==============================================================="
	fmt.Fprintf(os.Stderr, "\n%s\n %s\n%s\n\n", border, title, border)
}

// Banner prints the application banner shown once at startup.
func (l *Logger) Banner(title, version string) {
	fmt.Fprintf(os.Stderr, "\n%s - version %s\n\n", title, version)
}

func Debug(format string, args ...interface{})   { Default.Debug(format, args...) }
func Info(format string, args ...interface{})    { Default.Info(format, args...) }
func Warn(format string, args ...interface{})    { Default.Warn(format, args...) }
func Error(format string, args ...interface{})   { Default.Error(format, args...) }
func Success(format string, args ...interface{}) { Default.Success(format, args...) }
func Fatal(format string, args ...interface{})   { Default.Fatal(format, args...) }
func Section(title string)                       { Default.Section(title) }
func Banner(title, version string)               { Default.Banner(title, version) }
