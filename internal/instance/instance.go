// Package instance implements Instance Lifecycle & Config (§4.J): instance
// and server directory management plus the persisted InstanceConfig.
package instance

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// Kind distinguishes a client instance from a server, the two roots under
// which an InstanceSelection can point (§3's InstanceSelection union).
type Kind int

const (
	KindClient Kind = iota
	KindServer
)

// Selection names one instance or server by kind + name, the Go
// equivalent of the InstanceSelection{Instance|Server} union tag.
type Selection struct {
	Kind Kind
	Name string
}

func (s Selection) Dir(root *paths.Root) string {
	if s.Kind == KindServer {
		return filepath.Join(root.Servers(), s.Name)
	}
	return filepath.Join(root.Instances(), s.Name)
}

// Create makes a new instance (or server) directory, writes its initial
// config.json, and leaves details.json for the caller to populate once the
// Manifest & Version Resolver has run (instance creation itself does not
// resolve or download anything, matching §4.J's scope).
func Create(root *paths.Root, sel Selection, versionID string, modType loaders.Loader) (*InstanceConfig, error) {
	dir := sel.Dir(root)
	if _, err := os.Stat(dir); err == nil {
		return nil, &qerrors.Io{Path: dir, Cause: os.ErrExist}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &qerrors.Io{Path: dir, Cause: err}
	}
	if err := os.MkdirAll(filepath.Join(dir, ".minecraft"), 0o755); err != nil {
		return nil, &qerrors.Io{Path: dir, Cause: err}
	}

	cfg := defaultConfig()
	cfg.Name = sel.Name
	cfg.VersionID = versionID
	cfg.ModType = modType
	cfg.IsServer = sel.Kind == KindServer

	if err := cfg.Save(dir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Rename moves an instance/server directory and updates its config's Name
// field to match.
func Rename(root *paths.Root, sel Selection, newName string) error {
	oldDir := sel.Dir(root)
	newSel := Selection{Kind: sel.Kind, Name: newName}
	newDir := newSel.Dir(root)

	if _, err := os.Stat(newDir); err == nil {
		return &qerrors.Io{Path: newDir, Cause: os.ErrExist}
	}
	if err := os.Rename(oldDir, newDir); err != nil {
		return &qerrors.Io{Path: oldDir, Cause: err}
	}

	cfg, err := LoadConfig(newDir)
	if err != nil {
		return err
	}
	cfg.Name = newName
	return cfg.Save(newDir)
}

// Delete removes an instance/server directory entirely. Callers are
// expected to have already confirmed with the user; this function performs
// no confirmation of its own.
func Delete(root *paths.Root, sel Selection) error {
	dir := sel.Dir(root)
	if err := os.RemoveAll(dir); err != nil {
		return &qerrors.Io{Path: dir, Cause: err}
	}
	return nil
}

// List enumerates every instance (or server) directory under root,
// skipping any entry that doesn't look like an instance (no config.json).
func List(root *paths.Root, kind Kind) ([]string, error) {
	base := root.Instances()
	if kind == KindServer {
		base = root.Servers()
	}
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &qerrors.Io{Path: base, Cause: err}
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(configPath(filepath.Join(base, e.Name()))); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// MinecraftDir is the .minecraft-equivalent working directory inside an
// instance, where mods/, config/, saves/, and mod_index.json live.
func (s Selection) MinecraftDir(root *paths.Root) string {
	if s.Kind == KindServer {
		return s.Dir(root) // servers have no separate .minecraft subdirectory
	}
	return filepath.Join(s.Dir(root), ".minecraft")
}

// DetailsPath is where the resolved VersionPlan is cached per instance.
func DetailsPath(instanceDir string) string { return filepath.Join(instanceDir, "details.json") }

// LoadDetails reads the cached VersionPlan, if any has been resolved yet.
func LoadDetails(instanceDir string) (*mojang.VersionPlan, error) {
	data, err := os.ReadFile(DetailsPath(instanceDir))
	if err != nil {
		return nil, &qerrors.Io{Path: DetailsPath(instanceDir), Cause: err}
	}
	var plan mojang.VersionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, &qerrors.Json{Text: string(data), Cause: err}
	}
	return &plan, nil
}

// ValidateUsername enforces §7's UsernameIsInvalid rule: no whitespace.
func ValidateUsername(username string) error {
	if username == "" || strings.ContainsAny(username, " \t\n\r") {
		return &qerrors.GameLaunchError{Kind: qerrors.UsernameIsInvalid}
	}
	return nil
}
