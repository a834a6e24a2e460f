package modstore

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// PresetIndex is the preset's index.json (§4.G "Presets (.qmp)").
type PresetIndex struct {
	LauncherVersion string               `json:"launcher_version"`
	GameVersion     string               `json:"game_version"`
	InstanceType    string               `json:"instance_type"` // "client"|"server"
	Mods            map[string]*ModRecord `json:"mods"`
	LocalFiles      []string             `json:"local_files"`
}

// BuildPreset zips index.json, the instance's config/ tree, and the files of
// every mod-index record that did not come from Modrinth into a .qmp archive
// at destPath.
func BuildPreset(minecraftDir, gameVersion, instanceType, destPath string) error {
	idx, err := LoadIndex(minecraftDir)
	if err != nil {
		return err
	}
	modrinthOnly := map[string]*ModRecord{}
	var localFiles []string
	for id, rec := range idx.Mods {
		if rec.Source == SourceModrinth {
			modrinthOnly[id] = rec
		} else {
			for _, f := range rec.Files {
				localFiles = append(localFiles, f.Filename)
			}
		}
	}

	index := PresetIndex{
		GameVersion:  gameVersion,
		InstanceType: instanceType,
		Mods:         modrinthOnly,
		LocalFiles:   localFiles,
	}
	indexBytes, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return &qerrors.Json{Cause: err}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return &qerrors.Io{Path: destPath, Cause: err}
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	defer zw.Close()

	w, err := zw.Create("index.json")
	if err != nil {
		return err
	}
	if _, err := w.Write(indexBytes); err != nil {
		return err
	}

	configDir := filepath.Join(minecraftDir, "config")
	filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(minecraftDir, path)
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		fw, werr := zw.Create(filepath.ToSlash(rel))
		if werr != nil {
			return nil
		}
		fw.Write(data)
		return nil
	})

	modsDir := filepath.Join(minecraftDir, "mods")
	for _, name := range localFiles {
		data, err := os.ReadFile(filepath.Join(modsDir, name))
		if err != nil {
			continue
		}
		fw, err := zw.Create(name)
		if err != nil {
			continue
		}
		fw.Write(data)
	}

	return nil
}

// LoadPreset implements §4.G's preset-load semantics: loading a preset
// whose game version or instance type does not match the target is
// allowed, but sideload of jars is skipped in that case.
func LoadPreset(presetPath, targetMinecraftDir, targetGameVersion, targetInstanceType string) (*ModIndex, error) {
	r, err := zip.OpenReader(presetPath)
	if err != nil {
		return nil, &qerrors.Io{Path: presetPath, Cause: err}
	}
	defer r.Close()

	var index PresetIndex
	matched := false
	for _, f := range r.File {
		if f.Name == "index.json" {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &index); err != nil {
				return nil, &qerrors.Json{Text: string(data), Cause: err}
			}
			matched = true
			break
		}
	}
	if !matched {
		return nil, &qerrors.NoInstallJson{}
	}

	compatible := index.GameVersion == targetGameVersion && index.InstanceType == targetInstanceType

	idx, err := LoadIndex(targetMinecraftDir)
	if err != nil {
		return nil, err
	}
	for id, rec := range index.Mods {
		idx.AddMod(id, rec)
	}

	if compatible {
		modsDir := filepath.Join(targetMinecraftDir, "mods")
		os.MkdirAll(modsDir, 0o755)
		for _, f := range r.File {
			if strings.Contains(f.Name, "/") || !strings.HasSuffix(f.Name, ".jar") {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				continue
			}
			os.WriteFile(filepath.Join(modsDir, f.Name), data, 0o644)
		}
		configDir := filepath.Join(targetMinecraftDir, "config")
		for _, f := range r.File {
			if !strings.HasPrefix(f.Name, "config/") || f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				continue
			}
			dest := filepath.Join(configDir, strings.TrimPrefix(f.Name, "config/"))
			os.MkdirAll(filepath.Dir(dest), 0o755)
			os.WriteFile(dest, data, 0o644)
		}
	}

	return idx, idx.Save(targetMinecraftDir)
}

// ModpackKind identifies a third-party bundle format probed from its zip
// contents (§4.G "Modpack files ... recognized by probing the zip").
type ModpackKind int

const (
	ModpackUnknown ModpackKind = iota
	ModpackCurseForge
	ModpackModrinth
)

// ProbeModpackKind inspects a zip's entries without fully parsing either
// manifest format.
func ProbeModpackKind(data []byte) ModpackKind {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ModpackUnknown
	}
	for _, f := range r.File {
		switch f.Name {
		case "manifest.json":
			return ModpackCurseForge
		case "modrinth.index.json":
			return ModpackModrinth
		}
	}
	return ModpackUnknown
}
