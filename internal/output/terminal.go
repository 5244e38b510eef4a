package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether fd is an interactive terminal, including
// Cygwin and MSYS terminals on Windows.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ColorDisabled decides whether output to w should be plain: when asked
// to, when NO_COLOR is set, or when w is not a terminal.
func ColorDisabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return true
	}
	return !IsTerminal(f.Fd())
}
