// Package inspector maps guest processes to host processes by reading the
// runtime debugger's process tables.
//
// Output of the debugger is parsed defensively: any line that does not look
// like a table row is skipped, and a lookup that finds nothing returns an
// empty result rather than an error. Only failing to start the debugger is
// reported as an error.
package inspector

import (
	"xlcompat/pkg/launcher"
)

// Inspector queries the process tables of one prefix.
// Immutable
type Inspector struct {
	runner launcher.Runner
}

// New returns an Inspector running the debugger through r.
func New(r launcher.Runner) *Inspector {
	return &Inspector{runner: r}
}

// ProcessIDs returns the guest pids of processes whose table line mentions name.
func (i *Inspector) ProcessIDs(name string) ([]GuestPID, error) {
	out, err := launcher.Capture(i.runner, "winedbg", "--command", "info proc")
	if err != nil {
		return nil, err
	}
	return ParseProcessList(out, name), nil
}

// FirstProcessID returns the first match of ProcessIDs. ok is false when
// nothing matched.
func (i *Inspector) FirstProcessID(name string) (pid GuestPID, ok bool, err error) {
	pids, err := i.ProcessIDs(name)
	if err != nil || len(pids) == 0 {
		return 0, false, err
	}
	return pids[0], true, nil
}

// HostProcessID returns the host pid backing guest, or 0 when unknown.
func (i *Inspector) HostProcessID(guest GuestPID) (HostPID, error) {
	out, err := launcher.Capture(i.runner, "winedbg", "--command", "info procmap")
	if err != nil {
		return 0, err
	}
	return ParseProcessMap(out, guest), nil
}
