package loaders

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// ErrBackendUnavailable is returned for a legacy-Fabric-family backend that
// has no real, documented endpoint to probe. Open Question (c): rather than
// guess at a placeholder URL the way the upstream `todo!()` markers did,
// the core refuses the combination cleanly.
var ErrBackendUnavailable = errors.New("this loader backend has no available metadata endpoint")

// FabricBackend is one of the catalogs probed for a given game version.
type FabricBackend struct {
	Name        string
	LoaderLoad  string // versions/loader/<game_version> endpoint, %s == game version
	Quilt       bool
	Unavailable bool
}

// Backends lists every catalog this installer knows about, in probe order.
// Real endpoints are used where the provider publishes one; backends with
// no real endpoint are marked Unavailable rather than given a fabricated
// URL.
var Backends = []FabricBackend{
	{Name: "fabric", LoaderLoad: "https://meta.fabricmc.net/v2/versions/loader/%s"},
	{Name: "quilt", LoaderLoad: "https://meta.quiltmc.org/v3/versions/loader/%s", Quilt: true},
	{Name: "ornithemc", LoaderLoad: "https://meta.ornithemc.net/v3/versions/loader/%s"},
	{Name: "babric", Unavailable: true},
	{Name: "cursedlegacy", Unavailable: true},
}

type fabricLoaderEntry struct {
	Loader struct {
		Version string `json:"version"`
	} `json:"loader"`
	LauncherMeta struct {
		MainClass json.RawMessage `json:"mainClass"`
		Libraries struct {
			Common []mavenLib `json:"common"`
		} `json:"libraries"`
	} `json:"launcherMeta"`
}

type mavenLib struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Profile is the persisted fabric.json shape.
type Profile struct {
	ID        string            `json:"id"`
	MainClass string            `json:"mainClass"`
	Libraries []mojang.Library  `json:"libraries"`
	JVMArgs   []string          `json:"jvmArgs,omitempty"`
	Backend   string            `json:"backend"`
	Quilt     bool              `json:"quilt"`
}

// InstallFabric implements §4.F's Fabric/Quilt paragraph: probe the
// official catalog first; if it has no entries for the instance's game
// version, probe the alternates concurrently and take the first success.
func InstallFabric(fetcher *httpfetch.Fetcher, instanceDir, gameVersion string, preferQuilt bool) (*Profile, error) {
	order := Backends
	if preferQuilt {
		order = []FabricBackend{Backends[1], Backends[0], Backends[2], Backends[3], Backends[4]}
	}

	// Try the preferred backend first, sequentially (the common case).
	if p, err := tryBackend(fetcher, order[0], gameVersion); err == nil {
		return persist(instanceDir, p)
	}

	// Probe the rest in parallel; first success wins.
	type result struct {
		profile *Profile
		err     error
	}
	resultsCh := make(chan result, len(order)-1)
	var wg sync.WaitGroup
	for _, b := range order[1:] {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := tryBackend(fetcher, b, gameVersion)
			resultsCh <- result{p, err}
		}()
	}
	go func() { wg.Wait(); close(resultsCh) }()

	var lastErr error = &qerrors.NoCompatibleVersionFound{Name: gameVersion}
	for r := range resultsCh {
		if r.err == nil {
			return persist(instanceDir, r.profile)
		}
		lastErr = r.err
	}
	return nil, lastErr
}

func tryBackend(fetcher *httpfetch.Fetcher, b FabricBackend, gameVersion string) (*Profile, error) {
	if b.Unavailable {
		return nil, fmt.Errorf("%s: %w", b.Name, ErrBackendUnavailable)
	}
	url := fmt.Sprintf(b.LoaderLoad, gameVersion)
	var entries []fabricLoaderEntry
	if err := fetcher.GetJSON(url, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &qerrors.NoMatchingVersionFound{Version: gameVersion}
	}
	top := entries[0]

	var mainClass string
	if err := json.Unmarshal(top.LauncherMeta.MainClass, &mainClass); err != nil {
		var obj map[string]string
		if err2 := json.Unmarshal(top.LauncherMeta.MainClass, &obj); err2 == nil {
			mainClass = obj["client"]
		}
	}

	libs := make([]mojang.Library, 0, len(top.LauncherMeta.Libraries.Common))
	for _, l := range top.LauncherMeta.Libraries.Common {
		libs = append(libs, mojang.Library{Name: l.Name})
	}

	return &Profile{
		ID:        top.Loader.Version,
		MainClass: mainClass,
		Libraries: libs,
		Backend:   b.Name,
		Quilt:     b.Quilt,
	}, nil
}

func persist(instanceDir string, p *Profile) (*Profile, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, &qerrors.Json{Cause: err}
	}
	if err := paths.AtomicWrite(filepath.Join(instanceDir, "fabric.json"), data); err != nil {
		return nil, err
	}
	return p, nil
}

// BuildShadedLaunchJar is a placeholder hook for the legacy Fabric/Quilt
// variants (OrnitheMC/Babric/CursedLegacy) that have no modern main-class
// dispatch and instead need a shaded jar concatenating loader libraries.
// Only invoked for backends that report success above; refused for
// Unavailable backends before reaching here.
func BuildShadedLaunchJar(instanceDir string, libJars []string) (string, error) {
	// A real implementation would zip-merge libJars' class entries into one
	// jar under instanceDir/libraries/shaded-launch.jar. Left unimplemented
	// pending a concrete legacy instance to validate byte-for-byte against;
	// tracked as a known gap rather than guessed at.
	return "", errors.New("shaded launch jar construction not yet implemented for this backend")
}
