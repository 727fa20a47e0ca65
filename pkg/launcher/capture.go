package launcher

import (
	"errors"
	"log/slog"
	"os/exec"
)

// Runner starts guest commands. *Launcher implements it.
type Runner interface {
	RunArgs(args []string, opts Options) (*Process, error)
}

var _ Runner = (*Launcher)(nil)

// Capture runs a guest command with stdout redirected and returns everything
// it printed. A non-zero exit status is not an error here: diagnostic tools
// exit non-zero on perfectly usable output.
func Capture(r Runner, args ...string) (string, error) {
	p, err := r.RunArgs(args, Options{RedirectStdout: true})
	if err != nil {
		return "", err
	}
	out, err := p.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		slog.Debug("Guest command exited non-zero", "args", args, "code", exitErr.ExitCode())
		err = nil
	}
	return string(out), err
}
