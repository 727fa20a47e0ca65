package cache

import (
	"context"
	"os"
)

// Ensure runs fn to create target unless target already exists.
// The check is repeated under the lock so that a producer that finished
// while we waited is not run twice.
func Ensure(ctx context.Context, target string, fn func() error) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	unlock, err := Lock(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(target); err == nil {
		return nil
	}

	return fn()
}
