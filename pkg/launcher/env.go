package launcher

import (
	"maps"
	"strings"

	"xlcompat/pkg/config"
)

const (
	// DllOverrides makes the runtime load native d3d/dxgi/mscoree so the
	// graphics layer's implementations are used.
	DllOverrides = "d3d9,d3d11,d3d10core,dxgi,mscoree=n"
	// MarkerVar tags every process started through this package.
	MarkerVar = "XL_WINEONLINUX"
	// GameModeLib is the performance governor preloaded when GameMode is on.
	GameModeLib = "libgamemodeauto.so.0"
)

// BuildEnv composes the variables set on every guest command. Later levels
// win on key collisions:
//
//  1. WINEPREFIX, WINEDLLOVERRIDES and the MarkerVar
//  2. WINEDEBUG, only when DebugVars is non-empty
//  3. DXVK_HUD
//  4. DXVK_ASYNC
//  5. WINEESYNC and WINEFSYNC
//  6. LD_PRELOAD, hostPreload plus GameModeLib when GameMode is on
//  7. extra, supplied by the caller - HIGHEST priority
func BuildEnv(s config.Settings, hostPreload string, extra map[string]string) map[string]string {
	env := map[string]string{
		"WINEPREFIX":       s.Wine.Prefix,
		"WINEDLLOVERRIDES": DllOverrides,
		MarkerVar:          "true",
	}

	if s.Wine.DebugVars != "" {
		env["WINEDEBUG"] = s.Wine.DebugVars
	}

	env["DXVK_HUD"] = s.Dxvk.Hud.EnvValue()

	env["DXVK_ASYNC"] = "0"
	if s.Dxvk.Async {
		env["DXVK_ASYNC"] = "1"
	}

	env["WINEESYNC"] = s.Wine.EsyncOn
	env["WINEFSYNC"] = s.Wine.FsyncOn

	preload := hostPreload
	if s.GameMode {
		preload = AppendPreload(preload, GameModeLib)
	}
	env["LD_PRELOAD"] = preload

	maps.Copy(env, extra)
	return env
}

// AppendPreload adds lib to the colon separated list unless it is already an entry.
func AppendPreload(list, lib string) string {
	if list == "" {
		return lib
	}
	for _, entry := range strings.Split(list, ":") {
		if entry == lib {
			return list
		}
	}
	return list + ":" + lib
}
