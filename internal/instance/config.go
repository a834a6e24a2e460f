package instance

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/quantumlauncher/qlcore/internal/launch"
	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// ModTypeInfo carries loader-specific detail that doesn't fit the generic
// fields below (currently only OptiFine's overlay jar path).
type ModTypeInfo struct {
	OptifineJar string `json:"optifine_jar,omitempty"`
}

// InstanceConfig is the persisted config.json (§3). Every field defaults
// sanely on a missing key so older configs round-trip without data loss,
// and unrecognized keys are preserved via Extra for forward compatibility
// with newer launcher versions writing to the same directory.
type InstanceConfig struct {
	Name          string            `json:"name"`
	VersionID     string            `json:"version_id"`
	ModType       loaders.Loader    `json:"mod_type"`
	ModTypeInfo   ModTypeInfo       `json:"mod_type_info,omitempty"`
	IsServer      bool              `json:"is_server"`
	IsClassicServer bool            `json:"is_classic_server,omitempty"`

	RamInMB     int    `json:"ram_in_mb"`
	JavaPath    string `json:"java_path,omitempty"` // overrides the installer-managed JVM when set

	EnableLogger bool `json:"enable_logger"`
	CloseOnStart bool `json:"close_on_start"`

	JavaArgsMode   launch.JavaArgsMode `json:"java_args_mode"`
	ExtraJavaArgs  []string            `json:"extra_java_args,omitempty"`
	ExtraGameArgs  []string            `json:"extra_game_args,omitempty"`

	PreLaunchPrefixMode launch.PrefixMode `json:"pre_launch_prefix_mode,omitempty"`
	PreLaunchPrefix     []string          `json:"pre_launch_prefix,omitempty"`

	CustomJarPath string `json:"custom_jar_path,omitempty"`

	WindowWidth  int `json:"window_width,omitempty"`
	WindowHeight int `json:"window_height,omitempty"`

	// Extra preserves any field this version of the core doesn't model yet,
	// so loading then saving an instance from a newer launcher version never
	// silently drops data (§8 round-trip property).
	Extra map[string]json.RawMessage `json:"-"`
}

func configPath(instanceDir string) string { return filepath.Join(instanceDir, "config.json") }

// defaultConfig mirrors the zero-value config a brand-new instance is
// created with before the caller fills in name/version/loader.
func defaultConfig() InstanceConfig {
	return InstanceConfig{
		RamInMB:      2048,
		EnableLogger: true,
	}
}

// LoadConfig reads config.json, defaulting every field a missing key would
// otherwise zero out incorrectly (RamInMB, EnableLogger).
func LoadConfig(instanceDir string) (*InstanceConfig, error) {
	path := configPath(instanceDir)
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &qerrors.Json{Text: string(data), Cause: err}
	}

	var rest map[string]json.RawMessage
	if err := json.Unmarshal(data, &rest); err == nil {
		for _, known := range knownConfigKeys {
			delete(rest, known)
		}
		cfg.Extra = rest
	}

	return &cfg, nil
}

// Save writes the config back, re-merging Extra so unknown fields from a
// newer launcher version survive a load/modify/save round trip.
func (c *InstanceConfig) Save(instanceDir string) error {
	base, err := json.Marshal(*c)
	if err != nil {
		return &qerrors.Json{Cause: err}
	}
	if len(c.Extra) == 0 {
		return paths.AtomicWrite(configPath(instanceDir), base)
	}

	var merged map[string]json.RawMessage
	json.Unmarshal(base, &merged)
	for k, v := range c.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return &qerrors.Json{Cause: err}
	}
	return paths.AtomicWrite(configPath(instanceDir), out)
}

var knownConfigKeys = []string{
	"name", "version_id", "mod_type", "mod_type_info", "is_server", "is_classic_server",
	"ram_in_mb", "java_path", "enable_logger", "close_on_start", "java_args_mode",
	"extra_java_args", "extra_game_args", "pre_launch_prefix_mode", "pre_launch_prefix",
	"custom_jar_path", "window_width", "window_height",
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &qerrors.Io{Path: path, Cause: err}
	}
	return data, nil
}
