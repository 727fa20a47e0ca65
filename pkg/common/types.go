// Package common provides shared types used across xlcompat.
// It includes the build variant and spawn mode enums resolved at startup
// and the error kinds surfaced to callers.
package common

import "errors"

// Error kinds. Failures returned by provisioning, prefix and launch operations
// wrap one of these so callers can branch with errors.Is.
var (
	// ErrProvisioning marks download, extraction and installer failures.
	ErrProvisioning = errors.New("provisioning failed")
	// ErrEnvironment marks prefix creation and reset failures.
	ErrEnvironment = errors.New("prefix environment failed")
	// ErrLaunch marks a missing target binary or a failed spawn.
	ErrLaunch = errors.New("launch failed")
)
