// Package log provides leveled, structured logging partitioned into modules
// that can be enabled and disabled independently at runtime. It is a thin
// layer over logrus: warnings and errors always go through, while info/debug
// entries are dropped unless their module has been enabled, before any
// formatting work happens.
package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint32

// Levels, ordered from most to least severe. Numeric values match logrus so
// that entries can be handed over without translation.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// A Context contributes fields to every entry logged while it is registered.
// The emulation driver registers itself so that each line carries the current
// cycle count.
type Context interface {
	AddLogContext(e *EntryZ)
}

var contexts []Context

func AddContext(c Context) {
	contexts = append(contexts, c)
}

func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Disable drops all log output. Useful in tests.
func Disable() {
	logrus.SetOutput(io.Discard)
}

func init() {
	logrus.SetLevel(logrus.DebugLevel)
}
