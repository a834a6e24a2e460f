package qlconfig

import (
	"testing"

	"github.com/quantumlauncher/qlcore/internal/paths"
)

func TestLoadDefaultsOnMissingFile(t *testing.T) {
	root := &paths.Root{Dir: t.TempDir()}
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Theme != "dark" || cfg.UIScale != 1.0 || cfg.SidebarWidth != 190 {
		t.Errorf("expected documented defaults, got %+v", cfg)
	}
	if cfg.Accounts == nil {
		t.Errorf("Accounts map should never be nil")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := &paths.Root{Dir: t.TempDir()}
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Username = "Notch"
	cfg.Accounts["notch#microsoft"] = AccountRef{Username: "Notch", UUID: "u", Provider: "microsoft"}
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(root)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Username != "Notch" {
		t.Errorf("expected username to round-trip, got %q", reloaded.Username)
	}
	if _, ok := reloaded.Accounts["notch#microsoft"]; !ok {
		t.Errorf("expected account entry to round-trip")
	}
}
