package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w writes to a terminal. Anything exposing an Fd()
// method is probed; plain buffers and pipes are not terminals.
func IsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// SupportsColor reports whether log and report output to w may carry ANSI
// color codes. Color is suppressed for non-terminal writers, when NO_COLOR
// is set (https://no-color.org), and on TERM=dumb terminals.
func SupportsColor(w io.Writer) bool {
	return supportsColor(w, IsTTY(w))
}

// supportsColor takes the TTY probe result as a parameter so the
// environment checks stay testable without a real terminal.
func supportsColor(_ io.Writer, isTTY bool) bool {
	if !isTTY {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}
