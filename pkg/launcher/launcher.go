// Package launcher starts guest commands inside a prefix.
//
// Every command is started as a host process wrapping the runtime binary,
// with the environment composed by BuildEnv. The stderr of each process is
// drained in the background into the shared log sink; stdout is only
// captured on request.
package launcher

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"xlcompat/pkg/common"
	"xlcompat/pkg/config"
	"xlcompat/pkg/logsink"
	"xlcompat/pkg/spawn"
)

// Options tune a single launch.
type Options struct {
	// Dir is the working directory, empty for the current one.
	Dir string
	// Env overrides any composed variable by key.
	Env map[string]string
	// RedirectStdout captures stdout into Process.Stdout instead of inheriting it.
	RedirectStdout bool
}

// Launcher starts processes for one prefix.
// Immutable
type Launcher struct {
	settings config.Settings
	sink     *logsink.Sink
	spawner  spawn.Spawner
	// Getenv reads the host environment, os.Getenv when nil.
	Getenv func(string) string
}

// New returns a Launcher writing stderr of every process to sink.
func New(settings config.Settings, sink *logsink.Sink, spawner spawn.Spawner) *Launcher {
	return &Launcher{
		settings: settings,
		sink:     sink,
		spawner:  spawner,
	}
}

// Settings returns the settings the launcher was built with.
func (l *Launcher) Settings() config.Settings { return l.settings }

// Run starts a guest command given as one command line, e.g.
// `winedbg --command "info proc"`. It is split with SplitCommandLine, so
// backslashes in registry keys and Windows paths are kept and nothing like
// $NAME is expanded.
func (l *Launcher) Run(command string, opts Options) (*Process, error) {
	args := SplitCommandLine(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", common.ErrLaunch)
	}
	return l.RunArgs(args, opts)
}

// RunArgs starts a guest command given as an explicit argument list.
func (l *Launcher) RunArgs(args []string, opts Options) (*Process, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	req := spawn.Request{
		Executable: l.settings.Wine64Path(),
		Args:       args,
		Env:        BuildEnv(l.settings, getenv("LD_PRELOAD"), opts.Env),
		Dir:        opts.Dir,
	}
	return l.Start(req, opts.RedirectStdout)
}

// Start spawns req as is. It is used for runtime binaries other than wine64,
// which take their environment from req alone.
func (l *Launcher) Start(req spawn.Request, redirectStdout bool) (*Process, error) {
	if _, err := os.Stat(req.Executable); err != nil {
		return nil, fmt.Errorf("%w: runtime binary %s: %w", common.ErrLaunch, req.Executable, err)
	}

	cmd := l.spawner.Command(req)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLaunch, err)
	}

	var stdout io.ReadCloser
	if redirectStdout {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrLaunch, err)
		}
	} else {
		cmd.Stdout = os.Stdout
	}

	slog.Debug("Starting guest command", "exe", req.Executable, "args", req.Args, "dir", req.Dir)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", common.ErrLaunch, req.Executable, err)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		l.sink.Drain(stderr)
	}()

	return &Process{cmd: cmd, stdout: stdout, drained: drained}, nil
}

// Process is a live handle to a started command. The caller decides whether
// to wait for it or let it run detached.
type Process struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	drained chan struct{}
}

// Pid returns the host process id of the spawned process.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Stdout is the captured standard output, nil unless RedirectStdout was set.
// It must be read to EOF before Wait when the command writes a lot.
func (p *Process) Stdout() io.Reader {
	if p.stdout == nil {
		return nil
	}
	return p.stdout
}

// Wait blocks until stderr is drained and the process has exited.
// There is no timeout.
func (p *Process) Wait() error {
	<-p.drained
	return p.cmd.Wait()
}

// Output reads captured stdout to EOF and then waits for the process.
func (p *Process) Output() ([]byte, error) {
	if p.stdout == nil {
		return nil, fmt.Errorf("stdout of pid %d was not redirected", p.Pid())
	}
	out, err := io.ReadAll(p.stdout)
	if werr := p.Wait(); err == nil {
		err = werr
	}
	return out, err
}

// Kill terminates the host process.
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}
