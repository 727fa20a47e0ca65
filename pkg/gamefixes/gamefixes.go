// Package gamefixes writes per-game workaround configuration files.
package gamefixes

import "log/slog"

// Writer places the default workaround configs into a directory.
type Writer interface {
	WriteDefaults(configDir string) error
}

// NopWriter writes nothing. It is used until a game ships workarounds.
type NopWriter struct{}

func (NopWriter) WriteDefaults(configDir string) error {
	slog.Debug("No game fixes to write", "dir", configDir)
	return nil
}
