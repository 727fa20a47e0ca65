package dxvk

import (
	"fmt"
	"strings"
)

// HudType selects the DXVK on-screen overlay.
type HudType int

const (
	HudNone HudType = iota
	HudFps
	HudFull
)

// EnvValue returns the DXVK_HUD value for h.
// An out of range HudType is a programming error and panics.
func (h HudType) EnvValue() string {
	switch h {
	case HudNone:
		return "0"
	case HudFps:
		return "fps"
	case HudFull:
		return "full"
	default:
		panic(fmt.Sprintf("dxvk: unknown HudType %d", int(h)))
	}
}

func (h HudType) String() string {
	switch h {
	case HudNone:
		return "none"
	case HudFps:
		return "fps"
	case HudFull:
		return "full"
	default:
		return fmt.Sprintf("HudType(%d)", int(h))
	}
}

// ParseHudType converts a configuration string into a HudType.
func ParseHudType(s string) (HudType, error) {
	switch strings.ToLower(s) {
	case "none", "", "0":
		return HudNone, nil
	case "fps":
		return HudFps, nil
	case "full":
		return HudFull, nil
	default:
		return HudNone, fmt.Errorf("unsupported dxvk hud type: %s", s)
	}
}
