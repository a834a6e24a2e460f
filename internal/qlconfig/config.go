// Package qlconfig implements the global launcher config.json (§6):
// username, accounts, UI preferences, and window geometry, all defaulted
// sanely when the key is missing so upgrading from an older config never
// crashes the launcher.
package qlconfig

import (
	"encoding/json"
	"os"

	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// AccountRef is the non-secret half of an account entry; the actual token
// material lives in the credential store, keyed by the same identifier.
type AccountRef struct {
	Username string `json:"username"`
	UUID     string `json:"uuid"`
	Provider string `json:"provider"` // "microsoft" | "offline" | "elyby" ...
}

// Config is the persisted top-level config.json.
type Config struct {
	Username string `json:"username"`
	Theme    string `json:"theme"`
	Style    string `json:"style"`
	Version  int    `json:"version"`

	SidebarWidth int  `json:"sidebar_width"`
	UIScale      float64 `json:"ui_scale"`
	Antialiasing bool `json:"antialiasing"`

	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`

	DefaultMinecraftWidth  int `json:"default_minecraft_width"`
	DefaultMinecraftHeight int `json:"default_minecraft_height"`

	Accounts        map[string]AccountRef `json:"accounts"`
	AccountSelected string                `json:"account_selected,omitempty"`
}

// Default matches every field's documented default (§6).
func Default() Config {
	return Config{
		Theme:                  "dark",
		Style:                  "default",
		Version:                1,
		SidebarWidth:           190,
		UIScale:                1.0,
		Antialiasing:           true,
		WindowWidth:            1280,
		WindowHeight:           720,
		DefaultMinecraftWidth:  854,
		DefaultMinecraftHeight: 480,
		Accounts:               map[string]AccountRef{},
	}
}

// Load reads root's config.json, falling back to Default() when the file
// doesn't exist yet (first run).
func Load(root *paths.Root) (*Config, error) {
	data, err := os.ReadFile(root.ConfigFile())
	if os.IsNotExist(err) {
		cfg := Default()
		return &cfg, nil
	}
	if err != nil {
		return nil, &qerrors.Io{Path: root.ConfigFile(), Cause: err}
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &qerrors.Json{Text: string(data), Cause: err}
	}
	if cfg.Accounts == nil {
		cfg.Accounts = map[string]AccountRef{}
	}
	return &cfg, nil
}

func (c *Config) Save(root *paths.Root) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &qerrors.Json{Cause: err}
	}
	return paths.AtomicWrite(root.ConfigFile(), data)
}
