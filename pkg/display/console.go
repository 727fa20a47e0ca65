package display

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// clearLine moves the cursor up one line and erases it.
const clearLine = "\x1b[1A\x1b[2K"

// consoleDisplay handles terminal output.
// Mutable
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	active  *consoleTask
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return &consoleDisplay{
		out: os.Stderr,
	}
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{
		out: w,
	}
}

func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.withStatusCleared(func() {
		fmt.Fprintln(d.out, msg)
	})
}

func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.verbose {
		return
	}
	d.withStatusCleared(func() {
		fmt.Fprintln(d.out, msg)
	})
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &consoleTask{d: d, name: name}
	d.active = t
	fmt.Fprintln(d.out, t.status())
	return t
}

func (d *consoleDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = nil
}

// withStatusCleared removes the active task's status line, runs fn and
// redraws the status line below whatever fn printed. d.mu must be held.
func (d *consoleDisplay) withStatusCleared(fn func()) {
	if d.active != nil {
		fmt.Fprint(d.out, clearLine)
	}
	fn()
	if d.active != nil {
		fmt.Fprintln(d.out, d.active.status())
	}
}

// Mutable
type consoleTask struct {
	d       *consoleDisplay
	name    string
	stage   string
	target  string
	percent int
	message string
}

func (t *consoleTask) status() string {
	s := "[" + t.name + "]"
	if t.stage != "" {
		s += " " + t.stage
	}
	if t.target != "" {
		s += " " + t.target
	}
	if t.percent > 0 {
		s += fmt.Sprintf(" %d%%", t.percent)
	}
	if t.message != "" {
		s += " " + t.message
	}
	return s
}

func (t *consoleTask) Log(msg string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.withStatusCleared(func() {
		fmt.Fprintln(t.d.out, msg)
	})
}

func (t *consoleTask) SetStage(name string, target string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.stage, t.target = name, target
	t.d.withStatusCleared(func() {})
}

func (t *consoleTask) Progress(percent int, message string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.percent, t.message = percent, message
	t.d.withStatusCleared(func() {})
}

func (t *consoleTask) Done() {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if t.d.active == t {
		fmt.Fprint(t.d.out, clearLine)
		t.d.active = nil
	}
	fmt.Fprintf(t.d.out, "[%s] Done\n", t.name)
}
