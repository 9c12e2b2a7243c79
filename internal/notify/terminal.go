// Package notify prints user-facing migration notifications.
package notify

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Terminal writes notifications to a terminal. Info is green and errors are
// red; permanent notifications are bold. With Quiet set, only permanent
// notifications and errors are shown.
type Terminal struct {
	Quiet bool

	mu   sync.Mutex
	out  io.Writer
	info *color.Color
	perm *color.Color
	err  *color.Color
}

func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{
		out:  out,
		info: color.New(color.FgGreen),
		perm: color.New(color.FgGreen, color.Bold),
		err:  color.New(color.FgRed),
	}
}

func (t *Terminal) Info(msg string, permanent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if permanent {
		t.perm.Fprintln(t.out, msg)
		return
	}
	if t.Quiet {
		return
	}
	t.info.Fprintln(t.out, msg)
}

func (t *Terminal) Error(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err.Fprintln(t.out, "Error: "+msg)
}
