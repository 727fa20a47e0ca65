// Package provision makes sure a runtime, a bootstrapped prefix and the
// graphics layer are all present before anything is launched.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"xlcompat/pkg/archive"
	"xlcompat/pkg/cache"
	"xlcompat/pkg/common"
	"xlcompat/pkg/config"
	"xlcompat/pkg/display"
	"xlcompat/pkg/downloader"
	"xlcompat/pkg/dxvk"
	"xlcompat/pkg/prefix"
)

// Provisioner brings one environment to the ready state.
// Mutable
type Provisioner struct {
	settings   config.Settings
	prefix     *prefix.Manager
	downloader downloader.Downloader
	dxvk       dxvk.Installer

	// mu serialises runs that do not share a singleflight call, e.g. a
	// second EnsureTool started right after the first one returned.
	mu    sync.Mutex
	group singleflight.Group
	ready atomic.Bool
}

// New returns a Provisioner. It does not touch the filesystem.
func New(settings config.Settings, pm *prefix.Manager, dl downloader.Downloader, dx dxvk.Installer) *Provisioner {
	return &Provisioner{
		settings:   settings,
		prefix:     pm,
		downloader: dl,
		dxvk:       dx,
	}
}

// RuntimeInstalled reports whether the wine64 binary exists.
func (p *Provisioner) RuntimeInstalled() bool {
	info, err := os.Stat(p.settings.Wine64Path())
	return err == nil && !info.IsDir()
}

// PrefixExists reports whether the prefix directory exists.
func (p *Provisioner) PrefixExists() bool {
	return p.prefix.Exists()
}

// IsToolDownloaded reports whether both the runtime and the prefix are present.
func (p *Provisioner) IsToolDownloaded() bool {
	return p.RuntimeInstalled() && p.PrefixExists()
}

// Ready reports whether EnsureTool has completed successfully in this process.
// Once set it is not cleared, even if files are removed afterwards.
func (p *Provisioner) Ready() bool {
	return p.ready.Load()
}

// EnsureTool installs the runtime when it is managed and missing, bootstraps
// the prefix and installs the graphics layer. Ready is only set once every
// step has succeeded; on failure it stays false and EnsureTool may be called
// again. Concurrent callers share one run and its result.
// task receives progress and may be nil.
func (p *Provisioner) EnsureTool(ctx context.Context, task display.Task) error {
	_, err, _ := p.group.Do("ensure", func() (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return nil, p.ensure(ctx, task)
	})
	return err
}

func (p *Provisioner) ensure(ctx context.Context, task display.Task) error {
	if !p.RuntimeInstalled() {
		if p.settings.Wine.StartupType == config.StartupCustom {
			return fmt.Errorf("%w: no wine64 in custom path %s", common.ErrProvisioning, p.settings.Wine.CustomBinPath)
		}
		if err := p.installRuntime(ctx, task); err != nil {
			return err
		}
	}

	if task != nil {
		task.SetStage("Prefix", p.prefix.Dir())
	}
	if err := p.prefix.Ensure(); err != nil {
		return err
	}

	if task != nil {
		task.SetStage("DXVK", p.settings.DxvkDir())
	}
	if err := p.dxvk.Install(ctx, p.prefix.Dir(), p.settings.DxvkDir()); err != nil {
		return fmt.Errorf("%w: %w", common.ErrProvisioning, err)
	}

	p.ready.Store(true)
	slog.Info("Compatibility tool ready", "prefix", p.prefix.Dir())
	return nil
}

// installRuntime downloads and extracts the managed release under a lock on
// its directory. Another process may have installed it while we waited.
func (p *Provisioner) installRuntime(ctx context.Context, task display.Task) error {
	release := p.settings.Release()
	runtimeDir := p.settings.RuntimeDir()

	unlock, err := cache.Lock(ctx, filepath.Join(runtimeDir, release.Name))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrProvisioning, err)
	}
	defer unlock()

	if p.RuntimeInstalled() {
		if task != nil {
			task.Log("Runtime was installed by another process")
		}
		return nil
	}

	slog.Info("Downloading runtime", "release", release.Name, "url", release.URL)
	if err := p.fetch(ctx, release, runtimeDir, task); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrProvisioning, release.Name, err)
	}

	if !p.RuntimeInstalled() {
		return fmt.Errorf("%w: archive %s has no %s", common.ErrProvisioning, release.URL, p.settings.Wine64Path())
	}
	return nil
}

func (p *Provisioner) fetch(ctx context.Context, release config.Release, dest string, task display.Task) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	// The extension picks the decompressor.
	tmp, err := os.CreateTemp(dest, "download-*"+archive.ExtensionOf(release.URL))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = p.downloader.Download(ctx, release.URL, tmp, task)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if task != nil {
		task.SetStage("Extract", dest)
	}
	// A half written release would pass the wine64 check on the next run.
	return archive.ExtractRelease(tmp.Name(), dest, release.Name)
}
