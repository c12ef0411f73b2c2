/*
Package logging provides a small leveled logger in the style of mutagen's
pkg/logging: a Logger wraps the standard library's log.Logger, adds a
dotted name prefix for Sublogger, and colors warnings and errors using
github.com/fatih/color the same way mutagen's cmd package colors its
terminal output.
*/
package logging

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

// DebugEnabled gates Debug/Debugf output. It is a package
// variable, not a per-Logger field, because every Sublogger in a run
// should honor the same -v flag.
var DebugEnabled = false

// Logger writes leveled, optionally-prefixed lines to stderr.
type Logger struct {
	prefix string
	base   *log.Logger
}

// RootLogger is the unprefixed logger every Sublogger descends from.
var RootLogger = &Logger{base: log.New(os.Stderr, "", log.LstdFlags)}

// Sublogger returns a new Logger whose lines are prefixed with name,
// nested under the receiver's existing prefix with a dot.
func (l *Logger) Sublogger(name string) *Logger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, base: l.base}
}

func (l *Logger) output(s string) {
	if l.prefix == "" {
		l.base.Output(3, s)
		return
	}
	l.base.Output(3, l.prefix+": "+s)
}

// Print logs a line at the default (info) level.
func (l *Logger) Print(v ...any) { l.output(fmt.Sprint(v...)) }

// Printf logs a formatted line at the default (info) level.
func (l *Logger) Printf(format string, v ...any) { l.output(fmt.Sprintf(format, v...)) }

// Println logs a line at the default (info) level.
func (l *Logger) Println(v ...any) { l.output(fmt.Sprintln(v...)) }

// Debug logs a line only when DebugEnabled is true.
func (l *Logger) Debug(v ...any) {
	if DebugEnabled {
		l.output(fmt.Sprint(v...))
	}
}

// Debugf logs a formatted line only when DebugEnabled is true.
func (l *Logger) Debugf(format string, v ...any) {
	if DebugEnabled {
		l.output(fmt.Sprintf(format, v...))
	}
}

// Warn logs err in yellow.
func (l *Logger) Warn(err error) {
	l.output(color.YellowString("warning: %v", err))
}

// Error logs err in red.
func (l *Logger) Error(err error) {
	l.output(color.RedString("error: %v", err))
}
