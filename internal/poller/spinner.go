package poller

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var frames = [...]rune{'|', '/', '-', '\\'}

// Spinner renders a four-frame progress indicator during polling. It
// only writes when attached to an interactive terminal so piped output
// stays clean.
type Spinner struct {
	writer  io.Writer
	enabled bool
	frame   int
}

// NewSpinner builds a spinner for the given file, enabled only when the
// file is a terminal.
func NewSpinner(file *os.File) *Spinner {
	if file == nil {
		return &Spinner{}
	}
	fd := file.Fd()
	return &Spinner{
		writer:  file,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// NewSpinnerWriter builds a spinner over an arbitrary writer. Used by
// tests that need to observe the frames.
func NewSpinnerWriter(w io.Writer, enabled bool) *Spinner {
	return &Spinner{writer: w, enabled: enabled}
}

// Advance draws the next frame in place.
func (s *Spinner) Advance() {
	if s == nil || !s.enabled || s.writer == nil {
		return
	}
	fmt.Fprintf(s.writer, "\r%c", frames[s.frame%len(frames)])
	s.frame++
}

// Clear erases the indicator once polling ends.
func (s *Spinner) Clear() {
	if s == nil || !s.enabled || s.writer == nil || s.frame == 0 {
		return
	}
	fmt.Fprint(s.writer, "\r \r")
}
