// Package config manages the settings of a compatibility environment.
// Defaults follow the XDG base directory specification and can be overlaid
// from a config file or XLCOMPAT_* environment variables.
package config

import (
	"xlcompat/pkg/common"
)

// Variant represents the distribution flavour of the runtime build.
type Variant = common.Variant

const (
	// VariantArch selects the Arch Linux runtime build.
	VariantArch Variant = common.VariantArch
	// VariantFedora selects the Fedora runtime build.
	VariantFedora Variant = common.VariantFedora
	// VariantUbuntu selects the Ubuntu runtime build, also used as the fallback.
	VariantUbuntu Variant = common.VariantUbuntu
)

// SpawnMode selects whether processes are spawned directly or via the host broker.
type SpawnMode = common.SpawnMode

const (
	// SpawnDirect starts processes as children of this process.
	SpawnDirect SpawnMode = common.SpawnDirect
	// SpawnSandboxed starts processes on the host through flatpak-spawn.
	SpawnSandboxed SpawnMode = common.SpawnSandboxed
)

// StartupType selects the runtime binary location strategy.
type StartupType = common.StartupType

const (
	// StartupManaged uses the downloaded runtime release.
	StartupManaged StartupType = common.StartupManaged
	// StartupCustom uses CustomBinPath.
	StartupCustom StartupType = common.StartupCustom
)

// Release identifies a downloadable runtime build.
type Release struct {
	// Name is the directory the archive extracts into.
	Name string
	// URL is where the archive is fetched from.
	URL string
}

const (
	releaseTag  = "7.7.r14.gd7507fbe"
	releaseBase = "https://github.com/goatcorp/wine-xiv-git/releases/download/" + releaseTag + "/"

	// ReleaseName is the directory every runtime build extracts into.
	ReleaseName = "wine-xiv-staging-fsync-git-" + releaseTag
)

// ReleaseFor returns the runtime build for a distribution variant.
// Unknown variants get the Ubuntu build.
func ReleaseFor(v Variant) Release {
	flavour := "ubuntu"
	switch v {
	case VariantArch:
		flavour = "arch"
	case VariantFedora:
		flavour = "fedora"
	}
	return Release{
		Name: ReleaseName,
		URL:  releaseBase + "wine-xiv-staging-fsync-git-" + flavour + "-" + releaseTag + ".tar.xz",
	}
}
