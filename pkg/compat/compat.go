// Package compat is the entry point for running a Windows program on Linux
// through a managed compatibility runtime.
//
// A Tools value owns one prefix: it provisions the runtime and graphics
// layer, launches guest commands with the composed environment, inspects
// guest processes and translates paths. All guest stderr goes to a single
// log file opened when the Tools is created.
package compat

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"xlcompat/pkg/common"
	"xlcompat/pkg/config"
	"xlcompat/pkg/display"
	"xlcompat/pkg/downloader"
	"xlcompat/pkg/dxvk"
	"xlcompat/pkg/gamefixes"
	"xlcompat/pkg/inspector"
	"xlcompat/pkg/launcher"
	"xlcompat/pkg/logsink"
	"xlcompat/pkg/prefix"
	"xlcompat/pkg/provision"
	"xlcompat/pkg/spawn"
	"xlcompat/pkg/winepath"
)

// Option customises the collaborators of a Tools.
type Option func(*options)

type options struct {
	spawner    spawn.Spawner
	downloader downloader.Downloader
	dxvk       dxvk.Installer
	fixes      gamefixes.Writer
	task       display.Task
}

// WithSpawner replaces the spawner picked from the spawn mode.
func WithSpawner(s spawn.Spawner) Option {
	return func(o *options) { o.spawner = s }
}

// WithDownloader replaces the default downloader.
func WithDownloader(d downloader.Downloader) Option {
	return func(o *options) { o.downloader = d }
}

// WithGraphicsInstaller replaces the DXVK release installer.
func WithGraphicsInstaller(i dxvk.Installer) Option {
	return func(o *options) { o.dxvk = i }
}

// WithGameFixes sets the workaround config writer, NopWriter by default.
func WithGameFixes(w gamefixes.Writer) Option {
	return func(o *options) { o.fixes = w }
}

// WithTask reports graphics layer downloads to task.
func WithTask(t display.Task) Option {
	return func(o *options) { o.task = t }
}

// Tools composes every subsystem for one prefix.
// Immutable, safe for concurrent use.
type Tools struct {
	settings    config.Settings
	sink        *logsink.Sink
	launcher    *launcher.Launcher
	prefix      *prefix.Manager
	provisioner *provision.Provisioner
	inspector   *inspector.Inspector
	paths       *winepath.Translator
	fixes       gamefixes.Writer
}

// New creates the tools, graphics layer and prefix directories if needed,
// opens (and truncates) the log file and wires the subsystems.
// Nothing is downloaded until EnsureTool.
func New(settings config.Settings, opts ...Option) (*Tools, error) {
	o := options{fixes: gamefixes.NopWriter{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.spawner == nil {
		o.spawner = spawn.ForMode(settings.SpawnMode)
	}
	if o.downloader == nil {
		o.downloader = downloader.NewDefaultDownloader()
	}
	if o.dxvk == nil {
		i := dxvk.NewReleaseInstaller(o.task)
		i.Downloader = o.downloader
		o.dxvk = i
	}

	for _, dir := range []string{settings.ToolsDir, settings.DxvkDir(), settings.Wine.Prefix} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create %s: %w", common.ErrEnvironment, dir, err)
		}
	}

	sink, err := logsink.Open(settings.Wine.LogFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrEnvironment, err)
	}

	l := launcher.New(settings, sink, o.spawner)
	pm := prefix.New(settings.Wine.Prefix, l)

	slog.Debug("Compatibility tools initialised",
		"prefix", settings.Wine.Prefix, "startup", settings.Wine.StartupType,
		"variant", settings.Variant, "spawn", settings.SpawnMode)

	return &Tools{
		settings:    settings,
		sink:        sink,
		launcher:    l,
		prefix:      pm,
		provisioner: provision.New(settings, pm, o.downloader, o.dxvk),
		inspector:   inspector.New(l),
		paths:       winepath.New(l),
		fixes:       o.fixes,
	}, nil
}

// Settings returns the settings the tools were created with.
func (t *Tools) Settings() config.Settings { return t.settings }

// EnsureTool provisions the runtime, the prefix and the graphics layer.
func (t *Tools) EnsureTool(ctx context.Context, task display.Task) error {
	return t.provisioner.EnsureTool(ctx, task)
}

// Ready reports whether EnsureTool has succeeded in this process.
func (t *Tools) Ready() bool { return t.provisioner.Ready() }

// RuntimeInstalled reports whether the wine64 binary exists.
func (t *Tools) RuntimeInstalled() bool { return t.provisioner.RuntimeInstalled() }

// IsToolDownloaded reports whether the runtime and the prefix are on disk.
func (t *Tools) IsToolDownloaded() bool { return t.provisioner.IsToolDownloaded() }

// EnsurePrefix bootstraps the prefix and waits for it.
func (t *Tools) EnsurePrefix() error { return t.prefix.Ensure() }

// ResetPrefix destroys all guest state and bootstraps a fresh prefix.
func (t *Tools) ResetPrefix() error { return t.prefix.Reset() }

// RunInPrefix starts a guest command given as one shell-style string.
func (t *Tools) RunInPrefix(command string, opts launcher.Options) (*launcher.Process, error) {
	return t.launcher.Run(command, opts)
}

// RunArgsInPrefix starts a guest command given as an argument list.
func (t *Tools) RunArgsInPrefix(args []string, opts launcher.Options) (*launcher.Process, error) {
	return t.launcher.RunArgs(args, opts)
}

// ProcessIDs returns the guest pids of every process whose executable is name.
func (t *Tools) ProcessIDs(name string) ([]inspector.GuestPID, error) {
	return t.inspector.ProcessIDs(name)
}

// FirstProcessID returns the first guest pid for name, ok is false if none.
func (t *Tools) FirstProcessID(name string) (inspector.GuestPID, bool, error) {
	return t.inspector.FirstProcessID(name)
}

// HostProcessID maps a guest pid to its host pid, 0 when unknown.
func (t *Tools) HostProcessID(guest inspector.GuestPID) (inspector.HostPID, error) {
	return t.inspector.HostProcessID(guest)
}

// ToWindowsPath converts a host path to its guest form.
func (t *Tools) ToWindowsPath(hostPath string) (string, error) {
	return t.paths.ToWindows(hostPath)
}

// AddRegistryKey writes one string value into the guest registry and waits
// for the writer to exit.
func (t *Tools) AddRegistryKey(key, value, data string) error {
	p, err := t.launcher.RunArgs([]string{"reg", "add", key, "/v", value, "/d", data, "/f"}, launcher.Options{})
	if err != nil {
		return err
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("%w: reg add %s /v %s: %w", common.ErrLaunch, key, value, err)
	}
	return nil
}

// Kill asks the runtime's server to terminate every process in the prefix.
// It returns once the request is started; the server is reaped in the background.
func (t *Tools) Kill() error {
	req := spawn.Request{
		Executable: t.settings.WineServerPath(),
		Args:       []string{"-k"},
		Env:        map[string]string{"WINEPREFIX": t.settings.Wine.Prefix},
	}
	p, err := t.launcher.Start(req, false)
	if err != nil {
		return err
	}
	slog.Info("Killing prefix", "prefix", t.settings.Wine.Prefix, "pid", p.Pid())
	go func() {
		if err := p.Wait(); err != nil {
			slog.Warn("wineserver -k failed", "err", err)
		}
	}()
	return nil
}

// EnsureGameFixes writes the default workaround configs into dir.
func (t *Tools) EnsureGameFixes(dir string) error {
	return t.fixes.WriteDefaults(dir)
}

// Close closes the log file. Processes still running keep draining into
// a closed sink and their lines are dropped.
func (t *Tools) Close() error {
	return t.sink.Close()
}
