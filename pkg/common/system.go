package common

import (
	"fmt"
	"strings"
)

// Variant represents the distribution flavour a runtime build targets.
type Variant string

const (
	// VariantArch represents Arch Linux and derivatives.
	VariantArch Variant = "arch"
	// VariantFedora represents Fedora and other RPM based distributions.
	VariantFedora Variant = "fedora"
	// VariantUbuntu represents Ubuntu, Debian and everything else.
	VariantUbuntu Variant = "ubuntu"
)

// SpawnMode selects how guest commands reach the host.
type SpawnMode string

const (
	// SpawnDirect starts the runtime binary as a child process.
	SpawnDirect SpawnMode = "direct"
	// SpawnSandboxed re-routes every spawn through the host-spawn broker.
	SpawnSandboxed SpawnMode = "sandboxed"
)

// StartupType selects where the runtime binaries are found.
type StartupType string

const (
	// StartupManaged uses the runtime release downloaded into the tools directory.
	StartupManaged StartupType = "managed"
	// StartupCustom uses a runtime installed by the user.
	StartupCustom StartupType = "custom"
)

// ParseVariant converts a string representation of a distribution into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "arch", "archlinux", "manjaro", "endeavouros", "steamos":
		return VariantArch, nil
	case "fedora", "rhel", "centos", "nobara":
		return VariantFedora, nil
	case "ubuntu", "debian", "linuxmint", "pop":
		return VariantUbuntu, nil
	default:
		return VariantUbuntu, fmt.Errorf("unsupported distribution variant: %s", s)
	}
}

// ParseSpawnMode converts a string into a SpawnMode.
func ParseSpawnMode(s string) (SpawnMode, error) {
	switch strings.ToLower(s) {
	case "direct", "":
		return SpawnDirect, nil
	case "sandboxed", "flatpak":
		return SpawnSandboxed, nil
	default:
		return SpawnDirect, fmt.Errorf("unsupported spawn mode: %s", s)
	}
}

// ParseStartupType converts a string into a StartupType.
func ParseStartupType(s string) (StartupType, error) {
	switch strings.ToLower(s) {
	case "managed", "":
		return StartupManaged, nil
	case "custom":
		return StartupCustom, nil
	default:
		return StartupManaged, fmt.Errorf("unsupported startup type: %s", s)
	}
}

// String returns the string representation of the Variant.
func (v Variant) String() string {
	return string(v)
}

// String returns the string representation of the SpawnMode.
func (m SpawnMode) String() string {
	return string(m)
}

// String returns the string representation of the StartupType.
func (s StartupType) String() string {
	return string(s)
}
