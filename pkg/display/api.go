// Package display shows what provisioning is doing on the terminal: one
// status line per running task (download, extract, prefix bootstrap) plus
// plain output lines printed above it.
package display

// Task is one provisioning step shown as a live status line.
// A nil Task is never passed to implementations; callers check first.
type Task interface {
	// SetStage names the current phase and the URL or path it works on.
	SetStage(name string, target string)
	// Progress sets the completion percentage, 0 when unknown, and a short
	// human readable note such as "12 MiB of 300 MiB".
	Progress(percent int, message string)
	// Log prints msg above the status line.
	Log(msg string)
	// Done removes the status line. The creator of the task calls it.
	Done()
}

// Display owns the terminal while commands run.
type Display interface {
	StartTask(name string) Task
	// Print writes a result line, always shown.
	Print(msg string)
	// Log writes a diagnostic line, shown only when verbose.
	Log(msg string)
	SetVerbose(v bool)
	Close()
}
