package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseVariant(t *testing.T) {
	cases := map[string]Variant{
		"arch":      VariantArch,
		"Manjaro":   VariantArch,
		"fedora":    VariantFedora,
		"debian":    VariantUbuntu,
		"ubuntu":    VariantUbuntu,
		"linuxmint": VariantUbuntu,
	}
	for in, want := range cases {
		got, err := ParseVariant(in)
		if err != nil {
			t.Errorf("ParseVariant(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseVariant(%q) = %s, want %s", in, got, want)
		}
	}

	if v, err := ParseVariant("gentoo"); err == nil || v != VariantUbuntu {
		t.Errorf("Expected error and ubuntu fallback, got %s, %v", v, err)
	}
}

func TestParseSpawnMode(t *testing.T) {
	if m, _ := ParseSpawnMode("flatpak"); m != SpawnSandboxed {
		t.Errorf("Expected sandboxed, got %s", m)
	}
	if m, _ := ParseSpawnMode(""); m != SpawnDirect {
		t.Errorf("Expected direct, got %s", m)
	}
	if _, err := ParseSpawnMode("ssh"); err == nil {
		t.Errorf("Expected error for unknown mode")
	}
}

func TestParseStartupType(t *testing.T) {
	if s, _ := ParseStartupType("Custom"); s != StartupCustom {
		t.Errorf("Expected custom, got %s", s)
	}
	if _, err := ParseStartupType("system"); err == nil {
		t.Errorf("Expected error for unknown startup type")
	}
}

func TestErrorKindsWrap(t *testing.T) {
	err := fmt.Errorf("%w: download: %w", ErrProvisioning, errors.New("boom"))
	if !errors.Is(err, ErrProvisioning) {
		t.Errorf("Expected ErrProvisioning in chain")
	}
	if errors.Is(err, ErrLaunch) {
		t.Errorf("Did not expect ErrLaunch in chain")
	}
}
