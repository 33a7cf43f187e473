// Package spinner implements a progress spinner for blocking steps.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/deepprivacy/pgan/pkg/terminal"
)

// Spinner prints progress while a blocking step runs.
// Falls back to a single line when the terminal has no color support.
type Spinner struct {
	wr     io.Writer
	suffix string
	sp     *spinner.Spinner
}

// New returns a new spinner writing to wr (os.Stderr if nil).
func New(wr io.Writer, suffix string) *Spinner {
	if wr == nil {
		wr = os.Stderr
	}
	s := &Spinner{wr: wr, suffix: strings.TrimSpace(suffix)}
	if _, err := terminal.IsColor(); err == nil {
		s.sp = spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(wr))
		s.sp.Suffix = " " + s.suffix
		s.sp.FinalMSG = "\n"
	}
	return s
}

// Start starts the spinner.
func (s *Spinner) Start() {
	if s.sp != nil {
		s.sp.Start()
		return
	}
	fmt.Fprintf(s.wr, "... %s\n", s.suffix)
}

// Stop stops the spinner.
func (s *Spinner) Stop() {
	if s.sp != nil {
		s.sp.Stop()
	}
}
