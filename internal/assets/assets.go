// Package assets implements the Asset Installer (§4.D): downloads the asset
// index and per-object blobs into a content-addressed store, and provides
// the explicit cleaner that prunes unreferenced objects.
package assets

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

type objectEntry struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

type assetIndexJSON struct {
	Objects       map[string]objectEntry `json:"objects"`
	MapToResources bool                  `json:"map_to_resources"`
	Virtual        bool                  `json:"virtual"`
}

const objectCDN = "https://resources.download.minecraft.net"

// Installer is the Asset Installer bound to a launcher root and fetcher.
type Installer struct {
	Root    *paths.Root
	Fetcher *httpfetch.Fetcher
}

func New(root *paths.Root, fetcher *httpfetch.Fetcher) *Installer {
	return &Installer{Root: root, Fetcher: fetcher}
}

// Install implements §4.D steps 1-3: fetch the index, write every object
// (mirroring to the legacy layout when applicable), bounded by the shared
// concurrency limit.
func (in *Installer) Install(ref mojang.AssetIndexRef, onProgress httpfetch.ProgressFunc) error {
	indexBytes, err := in.Fetcher.GetBytes(ref.URL, httpfetch.UADefault)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(in.Root.AssetsDir(), "indexes", ref.ID+".json")
	if err := paths.AtomicWrite(indexPath, indexBytes); err != nil {
		return err
	}

	var idx assetIndexJSON
	if err := json.Unmarshal(indexBytes, &idx); err != nil {
		return &qerrors.Json{Text: string(indexBytes), Cause: err}
	}

	legacy := ref.ID == "legacy" || idx.MapToResources

	jobs := make([]httpfetch.Job, 0, len(idx.Objects))
	for name, obj := range idx.Objects {
		name, obj := name, obj
		jobs = append(jobs, httpfetch.Job{
			Name: name,
			Run: func() error {
				return in.installOne(name, obj.Hash, legacy)
			},
		})
	}
	return httpfetch.DoJobsWithLimit(jobs, httpfetch.ConcurrencyLimit(), onProgress)
}

func (in *Installer) installOne(name, hash string, legacy bool) error {
	objPath := filepath.Join(in.Root.AssetsDir(), "objects", hash[:2], hash)
	if _, err := os.Stat(objPath); err == nil {
		return in.mirrorLegacy(name, objPath, legacy)
	}

	url := objectCDN + "/" + hash[:2] + "/" + hash
	data, err := in.Fetcher.GetBytes(url, httpfetch.UADefault)
	if err != nil {
		return err
	}
	if err := paths.AtomicWrite(objPath, data); err != nil {
		return err
	}
	return in.mirrorLegacy(name, objPath, legacy)
}

func (in *Installer) mirrorLegacy(name, objPath string, legacy bool) error {
	if !legacy {
		return nil
	}
	legacyPath := filepath.Join(in.Root.AssetsLegacy(), filepath.FromSlash(name))
	data, err := os.ReadFile(objPath)
	if err != nil {
		return &qerrors.Io{Path: objPath, Cause: err}
	}
	return paths.AtomicWrite(legacyPath, data)
}

// CleanResult reports the cleaner's findings.
type CleanResult struct {
	IndexesRemoved int
	ObjectsRemoved int
	BytesReclaimed int64
}

// Clean implements the explicit cleaner: it is never invoked on every
// launch. It enumerates every instance's details.json to find the live set
// of asset-index ids, removes indexes outside that set, parses the
// remaining indexes for the live hash set, and removes unreferenced
// objects and now-empty bucket directories.
func (in *Installer) Clean() (*CleanResult, error) {
	liveIndexIDs := map[string]bool{}
	instanceDirs, _ := os.ReadDir(in.Root.Instances())
	for _, d := range instanceDirs {
		if !d.IsDir() {
			continue
		}
		detailsPath := filepath.Join(in.Root.Instances(), d.Name(), "details.json")
		data, err := os.ReadFile(detailsPath)
		if err != nil {
			continue
		}
		var plan mojang.VersionPlan
		if err := json.Unmarshal(data, &plan); err != nil {
			continue
		}
		if plan.AssetIndex.ID != "" {
			liveIndexIDs[plan.AssetIndex.ID] = true
		}
	}

	result := &CleanResult{}
	indexDir := filepath.Join(in.Root.AssetsDir(), "indexes")
	entries, _ := os.ReadDir(indexDir)
	liveHashes := map[string]bool{}

	for _, e := range entries {
		id := trimJSONExt(e.Name())
		path := filepath.Join(indexDir, e.Name())
		if !liveIndexIDs[id] {
			if info, err := e.Info(); err == nil {
				result.BytesReclaimed += info.Size()
			}
			os.Remove(path)
			result.IndexesRemoved++
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var idx assetIndexJSON
		if err := json.Unmarshal(data, &idx); err != nil {
			continue
		}
		for _, obj := range idx.Objects {
			liveHashes[obj.Hash] = true
		}
	}

	objectsDir := filepath.Join(in.Root.AssetsDir(), "objects")
	buckets, _ := os.ReadDir(objectsDir)
	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		bucketPath := filepath.Join(objectsDir, bucket.Name())
		files, _ := os.ReadDir(bucketPath)
		remaining := 0
		for _, f := range files {
			if liveHashes[f.Name()] {
				remaining++
				continue
			}
			p := filepath.Join(bucketPath, f.Name())
			if info, err := f.Info(); err == nil {
				result.BytesReclaimed += info.Size()
			}
			os.Remove(p)
			result.ObjectsRemoved++
		}
		if remaining == 0 {
			os.Remove(bucketPath)
		}
	}

	return result, nil
}

func trimJSONExt(name string) string {
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return name[:len(name)-5]
	}
	return name
}
