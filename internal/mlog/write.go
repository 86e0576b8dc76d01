package mlog

import (
	"io"
	"strings"

	"github.com/dogmatiq/iago/must"
)

// String returns a log line as a string.
//
// A line consists of the labelled IDs, then the status icons, then each
// non-empty text segment with segments separated by SeparatorIcon.
func String(
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) string {
	var w strings.Builder
	writeLine(&w, ids, icons, text)
	return w.String()
}

// Write writes a log line, as produced by String(), to w.
func Write(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) (n int, err error) {
	defer must.Recover(&err)
	return writeLine(w, ids, icons, text), nil
}

// writeLine writes a log line to w, panicking via the must package if an
// error occurs.
func writeLine(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text []string,
) int {
	n := 0

	for _, id := range ids {
		n += must.WriteTo(w, id)
		n += must.WriteString(w, "  ")
	}

	for _, icon := range icons {
		n += must.WriteTo(w, icon)
		n += must.WriteString(w, " ")
	}

	first := true
	for _, t := range text {
		if t == "" {
			continue
		}

		if !first {
			n += must.WriteString(w, " ")
			n += must.WriteTo(w, SeparatorIcon)
		}

		n += must.WriteString(w, " ")
		n += must.WriteString(w, t)
		first = false
	}

	return n
}
