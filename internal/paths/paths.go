// Package paths implements the Path & Lock Manager (§4.A): launcher root
// resolution, atomic writes, install-lock scoping, and bounded scratch
// cleanup. Every other component reaches the filesystem through here.
package paths

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// Root resolves and owns the launcher root directory.
type Root struct {
	Dir string
}

const portableMarkerName = "qldir.txt"

// Resolve implements the lookup order from §4.A / §6:
// QL_DIR env var > qldir.txt marker (next to executable, CWD, platform
// config dir) > platform config dir joined with "QuantumLauncher".
func Resolve() (*Root, error) {
	if v := os.Getenv("QL_DIR"); v != "" {
		return ensure(v)
	}

	exe, _ := os.Executable()
	candidates := []string{}
	if exe != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), portableMarkerName))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, portableMarkerName))
	}
	if cfgDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(cfgDir, portableMarkerName))
	}

	for _, marker := range candidates {
		data, err := os.ReadFile(marker)
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			// Blank marker selects "portable alongside executable".
			if exe == "" {
				return nil, &qerrors.Io{Path: marker, Cause: fmt.Errorf("portable marker found but executable path unknown")}
			}
			return ensure(filepath.Dir(exe))
		}
		firstLine := strings.SplitN(content, "\n", 2)[0]
		return ensure(strings.TrimSpace(firstLine))
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, &qerrors.Io{Path: "user config dir", Cause: err}
	}
	return ensure(filepath.Join(cfgDir, "QuantumLauncher"))
}

func ensure(dir string) (*Root, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &qerrors.Io{Path: dir, Cause: err}
	}
	return &Root{Dir: dir}, nil
}

func (r *Root) Join(parts ...string) string {
	return filepath.Join(append([]string{r.Dir}, parts...)...)
}

func (r *Root) Instances() string   { return r.Join("instances") }
func (r *Root) Servers() string     { return r.Join("servers") }
func (r *Root) AssetsDir() string   { return r.Join("assets", "dir") }
func (r *Root) AssetsLegacy() string { return r.Join("assets", "legacy_assets") }
func (r *Root) JavaInstalls() string { return r.Join("java_installs") }
func (r *Root) DownloadCache() string { return r.Join("downloads", "cache") }
func (r *Root) CustomJars() string  { return r.Join("custom_jars") }
func (r *Root) Logs() string        { return r.Join("logs") }
func (r *Root) ConfigFile() string  { return r.Join("config.json") }

// AtomicWrite writes bytes to a randomized .temp sibling, fsyncs it, and
// renames it over path. Returns an *qerrors.Io carrying the real path on
// any failure.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &qerrors.Io{Path: dir, Cause: err}
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".temp-%x", rand.Int63()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &qerrors.Io{Path: tmp, Cause: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &qerrors.Io{Path: tmp, Cause: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &qerrors.Io{Path: tmp, Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &qerrors.Io{Path: tmp, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &qerrors.Io{Path: path, Cause: err}
	}
	return nil
}

const lockFileName = "install.lock"

// HasInstallLock reports whether dir is mid-install per §3 invariant 5/6.
func HasInstallLock(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, lockFileName))
	return err == nil
}

// WithInstallLock creates install.lock (or the given lockName, for the
// loader-specific "fabric.lock") before running body, and removes it only
// on success. If body fails or panics, the lock is left in place so the
// next attempt detects an incomplete install and rebuilds from scratch.
func WithInstallLock(dir, lockName string, body func() error) error {
	if lockName == "" {
		lockName = lockFileName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &qerrors.Io{Path: dir, Cause: err}
	}
	lockPath := filepath.Join(dir, lockName)
	placeholder := fmt.Sprintf("install in progress, started %s\n", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(placeholder), 0o644); err != nil {
		return &qerrors.Io{Path: lockPath, Cause: err}
	}
	if err := body(); err != nil {
		return err
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return &qerrors.Io{Path: lockPath, Cause: err}
	}
	return nil
}

// CleanupScratch deletes files under dir, oldest-mtime-first, until the
// total size is within limitBytes. Best-effort: individual stat/remove
// failures are skipped, never returned, matching §4.A's "never swallows IO
// errors silently except during best-effort cleanup" (this is that
// exception). Returns bytes reclaimed.
func CleanupScratch(dir string, limitBytes int64) int64 {
	type entry struct {
		path    string
		size    int64
		modTime time.Time
	}
	var entries []entry
	var total int64

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, entry{path, info.Size(), info.ModTime()})
		total += info.Size()
		return nil
	})
	if total <= limitBytes {
		return 0
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })

	var reclaimed int64
	for _, e := range entries {
		if total <= limitBytes {
			break
		}
		if err := os.Remove(e.path); err == nil {
			total -= e.size
			reclaimed += e.size
		}
	}
	return reclaimed
}

// DefaultScratchLimit is the 100 MiB default for the download scratch dir.
const DefaultScratchLimit = 100 * 1024 * 1024

// OS/Arch helpers (adapted from the teacher's pkg/platform), extended with
// Arch since the Java runtime installer and Mojang rule evaluator need it.
type OS int

const (
	OSWindows OS = iota
	OSMacOS
	OSLinux
	OSUnknown
)

func (o OS) MojangName() string {
	switch o {
	case OSWindows:
		return "windows"
	case OSMacOS:
		return "osx"
	case OSLinux:
		return "linux"
	default:
		return "unknown"
	}
}

func CurrentOS() OS {
	switch runtime.GOOS {
	case "windows":
		return OSWindows
	case "darwin":
		return OSMacOS
	case "linux":
		return OSLinux
	default:
		return OSUnknown
	}
}

func CurrentArch() string { return runtime.GOARCH }

func ClasspathSeparator() string {
	if CurrentOS() == OSWindows {
		return ";"
	}
	return ":"
}

func ExecutableExtension() string {
	if CurrentOS() == OSWindows {
		return ".exe"
	}
	return ""
}
