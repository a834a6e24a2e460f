// Package modstore implements the Mod Store & Index (§4.G): unified
// Modrinth/CurseForge queries, dependency-aware install/delete, the
// per-instance ModIndex, and preset/modpack import-export.
package modstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// Source tags which backend produced a ModRecord.
type Source string

const (
	SourceModrinth   Source = "modrinth"
	SourceCurseForge Source = "curseforge"
)

// ModFile is one downloadable file belonging to a mod version.
type ModFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Primary  bool   `json:"primary"`
}

// ModRecord is one entry in a ModIndex, per §3.
type ModRecord struct {
	DisplayName         string          `json:"display_name"`
	InstalledVersion    string          `json:"installed_version"`
	VersionReleaseTime  string          `json:"version_release_time"`
	Files               []ModFile       `json:"files"`
	SupportedGameVersions []string      `json:"supported_game_versions"`
	ManuallyInstalled   bool            `json:"manually_installed"`
	Enabled             bool            `json:"enabled"`
	Source              Source          `json:"project_source"`
	ProjectID           string          `json:"project_id"`
	Dependencies        map[string]bool `json:"dependencies"`
	Dependents          map[string]bool `json:"dependents"`
	IconURL             string          `json:"icon_url,omitempty"`
	Description         string          `json:"description,omitempty"`
}

// ID is the mod_id index string "<source>:<id>" used to disambiguate
// sources (§3).
func ID(source Source, projectID string) string { return string(source) + ":" + projectID }

// ModIndex is the persisted mod_index.json, mapping mod_id -> ModRecord.
type ModIndex struct {
	Mods map[string]*ModRecord `json:"mods"`
}

func NewIndex() *ModIndex { return &ModIndex{Mods: map[string]*ModRecord{}} }

func indexPath(minecraftDir string) string { return filepath.Join(minecraftDir, "mod_index.json") }

func LoadIndex(minecraftDir string) (*ModIndex, error) {
	data, err := os.ReadFile(indexPath(minecraftDir))
	if os.IsNotExist(err) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, &qerrors.Io{Path: indexPath(minecraftDir), Cause: err}
	}
	var idx ModIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, &qerrors.Json{Text: string(data), Cause: err}
	}
	if idx.Mods == nil {
		idx.Mods = map[string]*ModRecord{}
	}
	return &idx, nil
}

func (idx *ModIndex) Save(minecraftDir string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return &qerrors.Json{Cause: err}
	}
	return paths.AtomicWrite(indexPath(minecraftDir), data)
}

// AddMod inserts a resolved mod and updates dependents for every one of its
// dependencies, maintaining the bidirectional edge invariant (§3.2).
func (idx *ModIndex) AddMod(id string, rec *ModRecord) {
	if rec.Dependencies == nil {
		rec.Dependencies = map[string]bool{}
	}
	if rec.Dependents == nil {
		rec.Dependents = map[string]bool{}
	}
	idx.Mods[id] = rec
	for dep := range rec.Dependencies {
		if d, ok := idx.Mods[dep]; ok {
			if d.Dependents == nil {
				d.Dependents = map[string]bool{}
			}
			d.Dependents[id] = true
		}
	}
}

// DeleteMods implements §4.G's delete operation: remove the named mods'
// files and index entries, then sweep to a fixed point — any
// non-manually-installed record whose dependents becomes empty is removed
// too, and removal severs that record's own dependency edges so the sweep
// can cascade.
func (idx *ModIndex) DeleteMods(minecraftDir string, modsDir string, ids []string) error {
	toDelete := map[string]bool{}
	for _, id := range ids {
		toDelete[id] = true
	}

	for changed := true; changed; {
		changed = false
		for id := range toDelete {
			rec, ok := idx.Mods[id]
			if !ok {
				continue
			}
			idx.removeFile(modsDir, rec)
			delete(idx.Mods, id)
			for dep := range rec.Dependencies {
				if d, ok := idx.Mods[dep]; ok {
					delete(d.Dependents, id)
				}
			}
			for _, other := range idx.Mods {
				delete(other.Dependents, id)
			}
			changed = true
		}
		toDelete = map[string]bool{}
		for id, rec := range idx.Mods {
			if !rec.ManuallyInstalled && len(rec.Dependents) == 0 {
				toDelete[id] = true
			}
		}
	}
	return nil
}

func (idx *ModIndex) removeFile(modsDir string, rec *ModRecord) {
	for _, f := range rec.Files {
		name := f.Filename
		if !rec.Enabled {
			name += ".disabled"
		}
		os.Remove(filepath.Join(modsDir, name)) // best effort: errors are ignored, never fail the caller
	}
}

// ToggleMod renames the jar between foo.jar and foo.jar.disabled and flips
// the enabled flag; calling it twice returns the filename to its original
// suffix (§8 round-trip property).
func (idx *ModIndex) ToggleMod(modsDir, id string) error {
	rec, ok := idx.Mods[id]
	if !ok {
		return &qerrors.NoInstallJson{}
	}
	for i, f := range rec.Files {
		var from, to string
		if rec.Enabled {
			from, to = f.Filename, f.Filename+".disabled"
		} else {
			from, to = f.Filename+".disabled", f.Filename
		}
		fromPath, toPath := filepath.Join(modsDir, from), filepath.Join(modsDir, to)
		if err := os.Rename(fromPath, toPath); err != nil && !os.IsNotExist(err) {
			return &qerrors.Io{Path: fromPath, Cause: err}
		}
		rec.Files[i].Filename = strings.TrimSuffix(to, ".disabled")
	}
	rec.Enabled = !rec.Enabled
	return nil
}

// VerifyBidirectional checks the §3.2 invariant: m ∈ index[d].dependents
// for every d such that d ∈ index[m].dependencies, and vice versa. Used by
// tests and as a debugging aid; never called on the hot path.
func (idx *ModIndex) VerifyBidirectional() bool {
	for id, rec := range idx.Mods {
		for dep := range rec.Dependencies {
			d, ok := idx.Mods[dep]
			if !ok || !d.Dependents[id] {
				return false
			}
		}
	}
	for id, rec := range idx.Mods {
		for dependent := range rec.Dependents {
			m, ok := idx.Mods[dependent]
			if !ok || !m.Dependencies[id] {
				return false
			}
		}
	}
	return true
}
