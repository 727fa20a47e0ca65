// Package cache guards install targets shared between processes.
// A target such as an extracted runtime release is produced at most once;
// concurrent producers wait on a "<target>.lock" file holding the owner's pid.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// pollInterval is how often a waiter re-checks a lock held by a live process.
var pollInterval = 200 * time.Millisecond

// Lock locks target by creating target+".lock" exclusively.
// A lock held by a live pid is waited on until ctx is done; a lock whose
// pid is gone, or whose content is unreadable, is treated as stale and removed.
// The returned function releases the lock.
func Lock(ctx context.Context, target string) (func() error, error) {
	lockFile := target + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent dir for lock: %w", err)
	}

	for {
		f, err := os.OpenFile(lockFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), os.Getpid())
			if _, err := f.WriteString(content); err != nil {
				f.Close()
				os.Remove(lockFile)
				return nil, fmt.Errorf("failed to write to lock file: %w", err)
			}
			f.Close()

			return func() error {
				return os.Remove(lockFile)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		owner, err := readOwner(lockFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			slog.Debug("Removing unreadable lock", "path", lockFile, "err", err)
			os.Remove(lockFile)
			continue
		case !isPidAlive(owner):
			slog.Debug("Removing stale lock", "path", lockFile, "pid", owner)
			os.Remove(lockFile)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s held by pid %d: %w", lockFile, owner, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// readOwner returns the pid recorded in a lock file.
func readOwner(lockFile string) (int, error) {
	content, err := os.ReadFile(lockFile)
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(string(content))
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed lock content %q", content)
	}
	return strconv.Atoi(parts[len(parts)-1])
}

func isPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks existence
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}

	// EPERM: the process exists but belongs to someone else.
	return true
}
