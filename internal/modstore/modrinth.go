package modstore

import (
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

const modrinthAPI = "https://api.modrinth.com/v2"

// Query is the unified mod-store query object from §4.G.
type Query struct {
	Name        string
	GameVersion string
	Loader      string // empty means "any"
	ServerSide  bool
}

// SearchResult mirrors §4.G's SearchResult{hits, total_hits, offset}.
type SearchResult struct {
	Hits       []SearchHit
	TotalHits  int
	Offset     int
}

type SearchHit struct {
	ProjectID   string
	Title       string
	Description string
	IconURL     string
}

// SearchModrinth probes Modrinth's v2 search API. gjson navigates the
// response without a full struct decode, since the search payload's facet
// fields vary by query shape.
func SearchModrinth(fetcher *httpfetch.Fetcher, q Query) (*SearchResult, error) {
	facets := fmt.Sprintf(`[["project_type:mod"],["versions:%s"]]`, q.GameVersion)
	if q.Loader != "" {
		facets = fmt.Sprintf(`[["project_type:mod"],["versions:%s"],["categories:%s"]]`, q.GameVersion, q.Loader)
	}
	u := fmt.Sprintf("%s/search?query=%s&facets=%s", modrinthAPI, url.QueryEscape(q.Name), url.QueryEscape(facets))
	body, err := fetcher.GetString(u, httpfetch.UADefault)
	if err != nil {
		return nil, err
	}
	parsed := gjson.Parse(body)
	result := &SearchResult{
		TotalHits: int(parsed.Get("total_hits").Int()),
		Offset:    int(parsed.Get("offset").Int()),
	}
	parsed.Get("hits").ForEach(func(_, hit gjson.Result) bool {
		result.Hits = append(result.Hits, SearchHit{
			ProjectID:   hit.Get("project_id").String(),
			Title:       hit.Get("title").String(),
			Description: hit.Get("description").String(),
			IconURL:     hit.Get("icon_url").String(),
		})
		return true
	})
	return result, nil
}

type modrinthVersionFile struct {
	Filename string
	URL      string
	Primary  bool
}

type modrinthVersion struct {
	ID             string
	VersionNumber  string
	DatePublished  string
	GameVersions   []string
	Loaders        []string
	Files          []modrinthVersionFile
	Dependencies   []string // project ids, required only
}

// ResolveModrinthVersion picks the latest version file whose game_versions
// and loaders satisfy the instance's plan (§4.G step 1).
func ResolveModrinthVersion(fetcher *httpfetch.Fetcher, projectID, gameVersion, loader string) (*modrinthVersion, error) {
	u := fmt.Sprintf("%s/project/%s/version?game_versions=[%q]&loaders=[%q]", modrinthAPI, projectID, gameVersion, loader)
	body, err := fetcher.GetString(u, httpfetch.UADefault)
	if err != nil {
		return nil, err
	}
	parsed := gjson.Parse(body)
	versions := parsed.Array()
	if len(versions) == 0 {
		return nil, &qerrors.NoCompatibleVersionFound{Name: projectID}
	}
	top := versions[0]

	v := &modrinthVersion{
		ID:            top.Get("id").String(),
		VersionNumber: top.Get("version_number").String(),
		DatePublished: top.Get("date_published").String(),
	}
	top.Get("game_versions").ForEach(func(_, gv gjson.Result) bool {
		v.GameVersions = append(v.GameVersions, gv.String())
		return true
	})
	top.Get("loaders").ForEach(func(_, l gjson.Result) bool {
		v.Loaders = append(v.Loaders, l.String())
		return true
	})
	top.Get("files").ForEach(func(_, f gjson.Result) bool {
		v.Files = append(v.Files, modrinthVersionFile{
			Filename: f.Get("filename").String(),
			URL:      f.Get("url").String(),
			Primary:  f.Get("primary").Bool(),
		})
		return true
	})
	top.Get("dependencies").ForEach(func(_, d gjson.Result) bool {
		if d.Get("dependency_type").String() == "required" {
			v.Dependencies = append(v.Dependencies, d.Get("project_id").String())
		}
		return true
	})
	return v, nil
}

// InstallModrinth implements §4.G steps 1-2-4 for the Modrinth backend:
// resolve the root version, resolve its required dependencies transitively,
// and record the bidirectional edges via idx.AddMod.
func InstallModrinth(fetcher *httpfetch.Fetcher, idx *ModIndex, projectID, title, gameVersion, loader string) error {
	return installModrinthRecursive(fetcher, idx, projectID, title, gameVersion, loader, true, map[string]bool{})
}

func installModrinthRecursive(fetcher *httpfetch.Fetcher, idx *ModIndex, projectID, title, gameVersion, loader string, manual bool, visiting map[string]bool) error {
	id := ID(SourceModrinth, projectID)
	if _, ok := idx.Mods[id]; ok {
		return nil
	}
	if visiting[projectID] {
		return nil // cyclic dependency guard (§9 design note)
	}
	visiting[projectID] = true

	v, err := ResolveModrinthVersion(fetcher, projectID, gameVersion, loader)
	if err != nil {
		return err
	}

	rec := &ModRecord{
		DisplayName:        title,
		InstalledVersion:   v.VersionNumber,
		VersionReleaseTime: v.DatePublished,
		SupportedGameVersions: v.GameVersions,
		ManuallyInstalled:  manual,
		Enabled:            true,
		Source:             SourceModrinth,
		ProjectID:          projectID,
		Dependencies:       map[string]bool{},
		Dependents:         map[string]bool{},
	}
	for _, f := range v.Files {
		rec.Files = append(rec.Files, ModFile{Filename: f.Filename, URL: f.URL, Primary: f.Primary})
	}

	for _, depID := range v.Dependencies {
		if err := installModrinthRecursive(fetcher, idx, depID, depID, gameVersion, loader, false, visiting); err != nil {
			continue // a dep that can't resolve shouldn't block the root install
		}
		rec.Dependencies[ID(SourceModrinth, depID)] = true
	}

	idx.AddMod(id, rec)
	return nil
}
