package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"

	"xlcompat/pkg/common"
	"xlcompat/pkg/dxvk"
)

// AppName is used for the XDG subdirectories and the environment prefix.
const AppName = "xlcompat"

// WineSettings describes one isolated environment and how to reach its runtime.
// Immutable
type WineSettings struct {
	Prefix        string
	StartupType   StartupType
	CustomBinPath string
	DebugVars     string
	EsyncOn       string
	FsyncOn       string
	LogFile       string
}

// DxvkSettings configures the graphics translation layer.
// Immutable
type DxvkSettings struct {
	Hud   dxvk.HudType
	Async bool
}

// Settings holds everything a compatibility environment needs at startup.
// Immutable
type Settings struct {
	Wine          WineSettings
	Dxvk          DxvkSettings
	ToolsDir      string
	GameConfigDir string
	GameMode      bool
	Variant       Variant
	SpawnMode     SpawnMode
	// RuntimeURL overrides the archive URL of the variant's release.
	RuntimeURL string
}

// RuntimeDir is where runtime releases are extracted.
func (s Settings) RuntimeDir() string { return filepath.Join(s.ToolsDir, "beta") }

// DxvkDir is where graphics layer releases are kept.
func (s Settings) DxvkDir() string { return filepath.Join(s.ToolsDir, "dxvk") }

// Release returns the runtime build for the configured variant.
func (s Settings) Release() Release {
	r := ReleaseFor(s.Variant)
	if s.RuntimeURL != "" {
		r.URL = s.RuntimeURL
	}
	return r
}

// WineBinPath is the directory holding the runtime binaries.
func (s Settings) WineBinPath() string {
	if s.Wine.StartupType == StartupCustom {
		return s.Wine.CustomBinPath
	}
	return filepath.Join(s.RuntimeDir(), s.Release().Name, "bin")
}

// Wine64Path is the runtime binary every guest command is started with.
func (s Settings) Wine64Path() string { return filepath.Join(s.WineBinPath(), "wine64") }

// WineServerPath is the runtime's server-control binary.
func (s Settings) WineServerPath() string { return filepath.Join(s.WineBinPath(), "wineserver") }

// Init returns the default settings using XDG base directories and the
// detected host distribution and sandbox.
func Init() Settings {
	data := filepath.Join(xdg.DataHome, AppName)
	return Settings{
		Wine: WineSettings{
			Prefix:      filepath.Join(data, "wineprefix"),
			StartupType: StartupManaged,
			EsyncOn:     "1",
			FsyncOn:     "0",
			LogFile:     filepath.Join(xdg.StateHome, AppName, "wine.log"),
		},
		Dxvk: DxvkSettings{
			Hud: dxvk.HudNone,
		},
		ToolsDir:      filepath.Join(data, "compatibilitytool"),
		GameConfigDir: filepath.Join(xdg.ConfigHome, AppName, "gamefixes"),
		Variant:       DetectVariant("/etc/os-release"),
		SpawnMode:     DetectSpawnMode("/.flatpak-info"),
	}
}

// Load overlays values from v onto the defaults returned by Init.
// A config file is read when v has one configured; a missing file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	s := Init()

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("prefix", s.Wine.Prefix)
	v.SetDefault("startup_type", s.Wine.StartupType.String())
	v.SetDefault("custom_bin_path", "")
	v.SetDefault("debug_vars", "")
	v.SetDefault("esync", true)
	v.SetDefault("fsync", false)
	v.SetDefault("log_file", s.Wine.LogFile)
	v.SetDefault("tools_dir", s.ToolsDir)
	v.SetDefault("game_config_dir", s.GameConfigDir)
	v.SetDefault("dxvk.hud", s.Dxvk.Hud.String())
	v.SetDefault("dxvk.async", false)
	v.SetDefault("gamemode", false)
	v.SetDefault("variant", s.Variant.String())
	v.SetDefault("spawn_mode", s.SpawnMode.String())
	v.SetDefault("runtime_url", "")

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return s, fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	startup, err := common.ParseStartupType(v.GetString("startup_type"))
	if err != nil {
		return s, err
	}
	variant, err := common.ParseVariant(v.GetString("variant"))
	if err != nil {
		return s, err
	}
	mode, err := common.ParseSpawnMode(v.GetString("spawn_mode"))
	if err != nil {
		return s, err
	}
	hud, err := dxvk.ParseHudType(v.GetString("dxvk.hud"))
	if err != nil {
		return s, err
	}

	s.Wine = WineSettings{
		Prefix:        v.GetString("prefix"),
		StartupType:   startup,
		CustomBinPath: v.GetString("custom_bin_path"),
		DebugVars:     v.GetString("debug_vars"),
		EsyncOn:       toggle(v.GetBool("esync")),
		FsyncOn:       toggle(v.GetBool("fsync")),
		LogFile:       v.GetString("log_file"),
	}
	s.Dxvk = DxvkSettings{Hud: hud, Async: v.GetBool("dxvk.async")}
	s.ToolsDir = v.GetString("tools_dir")
	s.GameConfigDir = v.GetString("game_config_dir")
	s.GameMode = v.GetBool("gamemode")
	s.Variant = variant
	s.SpawnMode = mode
	s.RuntimeURL = v.GetString("runtime_url")

	for _, p := range []*string{
		&s.Wine.Prefix, &s.Wine.CustomBinPath, &s.Wine.LogFile, &s.ToolsDir, &s.GameConfigDir,
	} {
		if *p, err = ExpandPath(*p); err != nil {
			return s, err
		}
	}

	if startup == StartupCustom && s.Wine.CustomBinPath == "" {
		return s, fmt.Errorf("startup type custom requires custom_bin_path")
	}
	return s, nil
}

// ExpandPath expands a leading ~ and $NAME or ${NAME} references from the
// process environment in a configured path.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = xdg.Home + path[1:]
	}
	expanded, err := shell.Expand(path, os.Getenv)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	return expanded, nil
}

func toggle(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

// DetectVariant reads an os-release file and maps its ID and ID_LIKE fields
// to a Variant. It falls back to Ubuntu.
func DetectVariant(osRelease string) Variant {
	f, err := os.Open(osRelease)
	if err != nil {
		return VariantUbuntu
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		val = strings.Trim(val, `"'`)
		switch key {
		case "ID":
			ids = append([]string{val}, ids...)
		case "ID_LIKE":
			ids = append(ids, strings.Fields(val)...)
		}
	}

	for _, id := range ids {
		if v, err := common.ParseVariant(id); err == nil {
			return v
		}
	}
	return VariantUbuntu
}

// DetectSpawnMode reports sandboxed when the sandbox marker file exists.
func DetectSpawnMode(marker string) SpawnMode {
	if _, err := os.Stat(marker); err == nil {
		return SpawnSandboxed
	}
	return SpawnDirect
}
