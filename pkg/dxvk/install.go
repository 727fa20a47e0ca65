// Package dxvk installs the DXVK graphics translation layer into a prefix.
package dxvk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"xlcompat/pkg/archive"
	"xlcompat/pkg/cache"
	"xlcompat/pkg/display"
	"xlcompat/pkg/downloader"
)

// Installer places graphics layer files from sourceDir into prefixDir.
type Installer interface {
	Install(ctx context.Context, prefixDir, sourceDir string) error
}

// DefaultRelease is the DXVK build installed by ReleaseInstaller.
var DefaultRelease = Release{
	Name: "dxvk-async-1.10.1",
	URL:  "https://github.com/Sporif/dxvk-async/releases/download/1.10.1/dxvk-async-1.10.1.tar.gz",
}

// Release identifies a DXVK archive and the directory it extracts into.
type Release struct {
	Name string
	URL  string
}

// ReleaseInstaller downloads a DXVK release into sourceDir on first use and
// copies its 64 bit DLLs into system32 and its 32 bit DLLs into syswow64.
// Immutable
type ReleaseInstaller struct {
	Release    Release
	Downloader downloader.Downloader
	// Task receives download progress, may be nil.
	Task display.Task
}

// NewReleaseInstaller returns an installer for DefaultRelease.
func NewReleaseInstaller(task display.Task) *ReleaseInstaller {
	return &ReleaseInstaller{
		Release:    DefaultRelease,
		Downloader: downloader.NewDefaultDownloader(),
		Task:       task,
	}
}

func (i *ReleaseInstaller) Install(ctx context.Context, prefixDir, sourceDir string) error {
	releaseDir := filepath.Join(sourceDir, i.Release.Name)

	err := cache.Ensure(ctx, releaseDir, func() error {
		return i.fetch(ctx, sourceDir)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", i.Release.Name, err)
	}

	system32 := filepath.Join(prefixDir, "drive_c", "windows", "system32")
	syswow64 := filepath.Join(prefixDir, "drive_c", "windows", "syswow64")

	if err := copyDlls(filepath.Join(releaseDir, "x64"), system32); err != nil {
		return err
	}
	if err := copyDlls(filepath.Join(releaseDir, "x32"), syswow64); err != nil {
		return err
	}

	slog.Info("Installed DXVK", "release", i.Release.Name, "prefix", prefixDir)
	return nil
}

func (i *ReleaseInstaller) fetch(ctx context.Context, sourceDir string) error {
	slog.Info("Downloading DXVK", "url", i.Release.URL)

	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(sourceDir, "download-*"+archive.ExtensionOf(i.Release.URL))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = i.Downloader.Download(ctx, i.Release.URL, tmp, i.Task)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	// The release dir is the cache marker, it must only appear complete.
	return archive.ExtractRelease(tmp.Name(), sourceDir, i.Release.Name)
}

func copyDlls(from, to string) error {
	entries, err := os.ReadDir(from)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", from, err)
	}
	if err := os.MkdirAll(to, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", to, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dll") {
			continue
		}
		if err := copyFile(filepath.Join(from, e.Name()), filepath.Join(to, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Prefix bootstrap leaves builtin placeholder files or symlinks in place.
	os.Remove(dst)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
