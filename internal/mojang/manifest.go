// Package mojang implements the Manifest & Version Resolver (§4.C): it
// fetches/caches the Mojang version manifest, evaluates library rules, and
// produces the normalized VersionPlan persisted as details.json.
package mojang

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

const (
	ManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
)

// Manifest is the list of known Mojang versions.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []ManifestEntry `json:"versions"`
}

type ManifestEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
}

// Artifact is one downloadable file belonging to a library.
type Artifact struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
}

// Library is a normalized, rule-evaluated dependency entry. Libraries
// filtered out by EvaluateRules never appear in VersionPlan.Libraries.
type Library struct {
	Name       string              `json:"name"`
	Artifact   *Artifact           `json:"artifact,omitempty"`
	Natives    *Artifact           `json:"natives,omitempty"` // resolved for the running OS/arch, if any
	ExtractDir string              `json:"extractDir,omitempty"`
}

// GroupArtifact returns the "group:artifact" dedupe key used by the
// classpath composer (§4.H), i.e. the first two colon-separated segments of
// the Maven coordinate.
func (l Library) GroupArtifact() string {
	parts := strings.SplitN(l.Name, ":", 3)
	if len(parts) < 2 {
		return l.Name
	}
	return parts[0] + ":" + parts[1]
}

type AssetIndexRef struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize"`
}

type LoggingRef struct {
	ArgumentTemplate string `json:"argument"`
	FileID           string `json:"fileId"`
	FileURL          string `json:"fileUrl"`
}

type JavaVersionRef struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// VersionPlan is the normalized details.json (§3).
type VersionPlan struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	ReleaseTime string          `json:"releaseTime"`
	MainClass   string          `json:"mainClass"`
	AssetIndex  AssetIndexRef   `json:"assetIndex"`
	Libraries   []Library       `json:"libraries"`
	Logging     *LoggingRef     `json:"logging,omitempty"`
	JavaVersion *JavaVersionRef `json:"javaVersion,omitempty"`
	GameArgs    []string        `json:"gameArgs"`
	JVMArgs     []string        `json:"jvmArgs"`

	// Raw is the upstream JSON verbatim, kept for §6's "verbatim modulo
	// normalization" requirement and for loader installers that need
	// fields this struct does not model.
	Raw json.RawMessage `json:"-"`
}

// --- raw upstream shapes, decoded then normalized ---

type rawOS struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

type rawRule struct {
	Action   string          `json:"action"`
	OS       *rawOS          `json:"os"`
	Features map[string]bool `json:"features"`
}

func (r rawRule) toRule() Rule {
	action := Allow
	if r.Action == "disallow" {
		action = Disallow
	}
	switch {
	case r.OS != nil:
		return Rule{Kind: RuleOS, Action: action, OS: OsPredicate{Name: r.OS.Name, Version: r.OS.Version, Arch: r.OS.Arch}}
	case len(r.Features) > 0:
		return Rule{Kind: RuleFeatures, Action: action, Features: r.Features}
	default:
		return Rule{Kind: RuleUnconditional, Action: action}
	}
}

// rawArgumentEntry decodes either a bare string or {"rules":[...], "value":
// string|[]string} as found in arguments.game / arguments.jvm.
type rawArgumentEntry struct {
	rules  []rawRule
	values []string
}

func (e *rawArgumentEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.values = []string{s}
		return nil
	}
	var obj struct {
		Rules []rawRule       `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.rules = obj.Rules
	var single string
	if err := json.Unmarshal(obj.Value, &single); err == nil {
		e.values = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(obj.Value, &many); err == nil {
		e.values = many
		return nil
	}
	return nil
}

type rawLibrary struct {
	Name     string `json:"name"`
	Rules    []rawRule `json:"rules"`
	Downloads struct {
		Artifact    *Artifact            `json:"artifact"`
		Classifiers map[string]*Artifact `json:"classifiers"`
	} `json:"downloads"`
	Natives map[string]string `json:"natives"`
	Extract *struct {
		Exclude []string `json:"exclude"`
	} `json:"extract"`
	// Some very old version JSONs (pre-Gradle Maven naming) carry a bare
	// "url" + derive the artifact path from the Maven name instead of a
	// downloads.artifact block.
	URL string `json:"url"`
}

type rawVersionJSON struct {
	ID                 string             `json:"id"`
	Type               string             `json:"type"`
	ReleaseTime        string             `json:"releaseTime"`
	MainClass          string             `json:"mainClass"`
	MinecraftArguments string             `json:"minecraftArguments"`
	Arguments          *struct {
		Game []rawArgumentEntry `json:"game"`
		JVM  []rawArgumentEntry `json:"jvm"`
	} `json:"arguments"`
	AssetIndex AssetIndexRef `json:"assetIndex"`
	Libraries  []rawLibrary  `json:"libraries"`
	Logging    *struct {
		Client struct {
			Argument string `json:"argument"`
			File     struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"file"`
		} `json:"client"`
	} `json:"logging"`
	JavaVersion *JavaVersionRef `json:"javaVersion"`
}

// Resolver fetches and normalizes VersionPlans.
type Resolver struct {
	Fetcher  *httpfetch.Fetcher
	Features map[string]bool // e.g. {"is_demo_user": false, "has_custom_resolution": false}
}

func NewResolver(f *httpfetch.Fetcher) *Resolver {
	return &Resolver{Fetcher: f, Features: map[string]bool{
		"is_demo_user":            false,
		"has_custom_resolution":   false,
		"has_quick_plays_support": false,
		"is_quick_play_singleplayer": false,
		"is_quick_play_multiplayer":  false,
		"is_quick_play_realms":       false,
	}}
}

// FetchManifest retrieves the version manifest (§4.C step 1). Callers are
// expected to cache the result themselves via httpfetch's URL cache if they
// want persistence across runs; the resolver always fetches fresh here
// because the manifest is small and changes frequently.
func (r *Resolver) FetchManifest() (*Manifest, error) {
	var m Manifest
	if err := r.Fetcher.GetJSON(ManifestURL, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Resolve implements §4.C steps 2-5: fetch the version JSON, evaluate
// library rules, pick native classifiers, and normalize arguments.
func (r *Resolver) Resolve(m *Manifest, versionID string) (*VersionPlan, error) {
	var entry *ManifestEntry
	for i := range m.Versions {
		if m.Versions[i].ID == versionID {
			entry = &m.Versions[i]
			break
		}
	}
	if entry == nil {
		return nil, &qerrors.NoMatchingVersionFound{Version: versionID}
	}

	raw, err := r.Fetcher.GetBytes(entry.URL, httpfetch.UADefault)
	if err != nil {
		return nil, err
	}
	var rv rawVersionJSON
	if err := json.Unmarshal(raw, &rv); err != nil {
		return nil, &qerrors.Json{Text: string(raw), Cause: err}
	}

	plan := &VersionPlan{
		ID:          rv.ID,
		Type:        rv.Type,
		ReleaseTime: rv.ReleaseTime,
		MainClass:   rv.MainClass,
		AssetIndex:  rv.AssetIndex,
		JavaVersion: rv.JavaVersion,
		Raw:         json.RawMessage(raw),
	}

	for _, rl := range rv.Libraries {
		action := Allow
		if len(rl.Rules) > 0 {
			rules := make([]Rule, len(rl.Rules))
			for i, x := range rl.Rules {
				rules[i] = x.toRule()
			}
			action = EvaluateRules(rules, r.Features)
		}
		if action == Disallow {
			continue
		}
		lib := Library{Name: rl.Name, Artifact: rl.Downloads.Artifact}
		if rl.Downloads.Artifact == nil && rl.URL != "" {
			lib.Artifact = &Artifact{URL: rl.URL + mavenPathFromName(rl.Name), Path: mavenPathFromName(rl.Name)}
		}
		if classifierKey, ok := rl.Natives[nativesOSKey()]; ok {
			classifierKey = strings.ReplaceAll(classifierKey, "${arch}", nativesArchBits())
			if a, ok := rl.Downloads.Classifiers[classifierKey]; ok {
				lib.Natives = a
				if rl.Extract != nil {
					lib.ExtractDir = strings.Join(rl.Extract.Exclude, ",")
				}
			}
		}
		plan.Libraries = append(plan.Libraries, lib)
	}

	if rv.Logging != nil {
		plan.Logging = &LoggingRef{
			ArgumentTemplate: rv.Logging.Client.Argument,
			FileID:           rv.Logging.Client.File.ID,
			FileURL:          rv.Logging.Client.File.URL,
		}
	}

	if rv.Arguments != nil {
		plan.GameArgs = collectArgs(rv.Arguments.Game, r.Features)
		plan.JVMArgs = collectArgs(rv.Arguments.JVM, r.Features)
	} else if rv.MinecraftArguments != "" {
		plan.GameArgs = strings.Fields(rv.MinecraftArguments)
		plan.JVMArgs = defaultLegacyJVMArgs()
	}

	return plan, nil
}

func collectArgs(entries []rawArgumentEntry, features map[string]bool) []string {
	var out []string
	for _, e := range entries {
		if len(e.rules) > 0 {
			rules := make([]Rule, len(e.rules))
			for i, x := range e.rules {
				rules[i] = x.toRule()
			}
			if EvaluateRules(rules, features) == Disallow {
				continue
			}
		}
		out = append(out, e.values...)
	}
	return out
}

func defaultLegacyJVMArgs() []string {
	return []string{
		"-Djava.library.path=${natives_directory}",
		"-cp", "${classpath}",
	}
}

func nativesOSKey() string {
	// keys used in version JSON "natives" maps
	switch paths.CurrentOS() {
	case paths.OSWindows:
		return "windows"
	case paths.OSMacOS:
		return "osx"
	default:
		return "linux"
	}
}

func nativesArchBits() string {
	switch paths.CurrentArch() {
	case "386", "arm":
		return "32"
	default:
		return "64"
	}
}

func mavenPathFromName(name string) string {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return ""
	}
	group := strings.ReplaceAll(parts[0], ".", "/")
	artifact, version := parts[1], parts[2]
	return filepath.ToSlash(filepath.Join(group, artifact, version, artifact+"-"+version+".jar"))
}
