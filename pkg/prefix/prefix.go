// Package prefix creates and resets the isolated environment a runtime
// executes guest programs in.
package prefix

import (
	"fmt"
	"log/slog"
	"os"

	"xlcompat/pkg/common"
	"xlcompat/pkg/launcher"
)

// bootstrapArgs is a guest command that does nothing but forces the runtime
// to finish its first-run setup of the prefix.
var bootstrapArgs = []string{"cmd", "/c", "dir", "%userprofile%/Documents", ">", "nul"}

// Manager owns one prefix directory.
// Immutable
type Manager struct {
	dir    string
	runner launcher.Runner
}

// New returns a Manager for dir running guest commands through r.
func New(dir string, r launcher.Runner) *Manager {
	return &Manager{dir: dir, runner: r}
}

// Dir returns the prefix directory.
func (m *Manager) Dir() string { return m.dir }

// Exists reports whether the prefix directory is present.
func (m *Manager) Exists() bool {
	info, err := os.Stat(m.dir)
	return err == nil && info.IsDir()
}

// Ensure runs a no-op guest command and blocks until it exits, letting the
// runtime bootstrap the prefix if needed. It is safe to call repeatedly.
// There is no timeout: a hung runtime hangs the caller.
func (m *Manager) Ensure() error {
	p, err := m.runner.RunArgs(bootstrapArgs, launcher.Options{})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrEnvironment, err)
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("%w: bootstrap of %s: %w", common.ErrEnvironment, m.dir, err)
	}
	return nil
}

// Reset deletes the prefix with all guest state, recreates it empty and
// bootstraps it again. Only call this on an explicit user request.
func (m *Manager) Reset() error {
	slog.Warn("Resetting prefix", "path", m.dir)

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("%w: failed to delete %s: %w", common.ErrEnvironment, m.dir, err)
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", common.ErrEnvironment, m.dir, err)
	}
	return m.Ensure()
}
