package loggingx

import (
	"fmt"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

// WithPrefix returns a logger that prepends a prefix, built from f and v, to
// every message written to target.
//
// Engine components use it to tag their messages with the entity namespace
// and component name.
func WithPrefix(target logging.Logger, f string, v ...interface{}) logging.Logger {
	p := fmt.Sprintf(f, v...)

	return prefixed{
		Logger: target,
		text:   p,
		// The prefix becomes part of a format string, so any verbs within it
		// must be escaped.
		verb: strings.ReplaceAll(p, "%", "%%"),
	}
}

type prefixed struct {
	logging.Logger
	text string
	verb string
}

func (l prefixed) Log(f string, v ...interface{}) {
	l.Logger.Log(l.verb+f, v...)
}

func (l prefixed) LogString(s string) {
	l.Logger.LogString(l.text + s)
}

func (l prefixed) Debug(f string, v ...interface{}) {
	l.Logger.Debug(l.verb+f, v...)
}

func (l prefixed) DebugString(s string) {
	l.Logger.DebugString(l.text + s)
}
