package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bscott/mailcloud/internal/pipeline"
)

const barWidth = 30

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Progress draws a single-line bar from pipeline events. It draws nothing
// for runs with no messages.
type Progress struct {
	w       io.Writer
	f       *Formatter
	failed  int
	drawn   bool
	lastLen int
}

func NewProgress(w io.Writer, f *Formatter) *Progress {
	return &Progress{w: w, f: f}
}

// Observe has the pipeline.Observer signature.
func (p *Progress) Observe(ev pipeline.Event) {
	if ev.Total <= 0 {
		return
	}
	if ev.Kind == pipeline.EventFetchFailed {
		p.failed++
	}

	filled := ev.Done * barWidth / ev.Total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	line := fmt.Sprintf("[%s] %d/%d %3d%%", bar, ev.Done, ev.Total, ev.Done*100/ev.Total)
	if p.failed > 0 {
		line += " " + p.f.WarningText(fmt.Sprintf("(%d failed)", p.failed))
	}

	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprint(p.w, "\r"+line+pad)
	p.lastLen = len(line)
	p.drawn = true
}

// Finish ends the bar's line.
func (p *Progress) Finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
