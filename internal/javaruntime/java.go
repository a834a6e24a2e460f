// Package javaruntime implements the Java Runtime Installer (§4.E):
// resolves a JVM for a version tag, installs it from Mojang's per-platform
// file list (LZMA-capable) or an alternate mirror table, and reports the
// platform-specific binary path.
package javaruntime

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/xi2/xz"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// Version is the closed set of JVM majors the core knows how to install,
// matching §4.E's "Java 8/16/17/21" vocabulary.
type Version int

const (
	Java8 Version = iota
	Java16
	Java17
	Java21
)

func (v Version) tagKey() string {
	switch v {
	case Java8:
		return "java8"
	case Java16:
		return "java16"
	case Java17:
		return "java17"
	case Java21:
		return "java21"
	default:
		return "java8"
	}
}

// mojangComponent is the component name inside Mojang's java-runtime
// manifest for each version tag.
func (v Version) mojangComponent() string {
	switch v {
	case Java8:
		return "jre-legacy"
	case Java16:
		return "java-runtime-alpha"
	case Java17:
		return "java-runtime-gamma"
	case Java21:
		return "java-runtime-delta"
	default:
		return "jre-legacy"
	}
}

// FromMajor maps a VersionPlan.JavaVersion.MajorVersion to our closed
// Version set; callers use Java8 when the plan carries no hint at all.
func FromMajor(major int) Version {
	switch {
	case major >= 21:
		return Java21
	case major >= 17:
		return Java17
	case major >= 16:
		return Java16
	default:
		return Java8
	}
}

// manifestURL is Mojang's per-platform java-runtime index. The top-level
// JSON is itself a pointer to per-OS manifests; the shape consumed here
// follows launchermeta's documented java-runtime v2 format.
const manifestURL = "https://piston-meta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"

type runtimeManifest map[string]map[string][]runtimeManifestEntry

type runtimeManifestEntry struct {
	Manifest struct {
		SHA1 string `json:"sha1"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	} `json:"manifest"`
}

type fileListJSON struct {
	Files map[string]fileEntry `json:"files"`
}

type fileEntry struct {
	Type       string `json:"type"` // "file" | "directory" | "link"
	Executable bool   `json:"executable"`
	Target     string `json:"target"`
	Downloads  struct {
		LZMA *downloadRef `json:"lzma"`
		Raw  *downloadRef `json:"raw"`
	} `json:"downloads"`
}

type downloadRef struct {
	SHA1 string `json:"sha1"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// manifestOSKey maps our platform detection to the java-runtime manifest's
// top-level OS keys ("linux", "mac-os", "mac-os-arm64", "windows-x64", ...).
func manifestOSKey() string {
	switch paths.CurrentOS() {
	case paths.OSWindows:
		if paths.CurrentArch() == "arm64" {
			return "windows-arm64"
		}
		if paths.CurrentArch() == "386" {
			return "windows-x86"
		}
		return "windows-x64"
	case paths.OSMacOS:
		if paths.CurrentArch() == "arm64" {
			return "mac-os-arm64"
		}
		return "mac-os"
	default:
		if paths.CurrentArch() == "386" {
			return "linux-i386"
		}
		return "linux"
	}
}

// Installer is the Java Runtime Installer bound to a launcher root.
type Installer struct {
	Root    *paths.Root
	Fetcher *httpfetch.Fetcher
}

func New(root *paths.Root, fetcher *httpfetch.Fetcher) *Installer {
	return &Installer{Root: root, Fetcher: fetcher}
}

// EnsureJava implements §4.E end to end and returns the platform-specific
// path to the java binary.
func (in *Installer) EnsureJava(v Version, onProgress httpfetch.ProgressFunc) (string, error) {
	v = applyPlatformOverride(v)
	dir := filepath.Join(in.Root.JavaInstalls(), v.tagKey())

	if !paths.HasInstallLock(dir) {
		if _, err := os.Stat(dir); err == nil {
			return binaryPath(dir), nil
		}
	}

	err := paths.WithInstallLock(dir, "install.lock", func() error {
		return in.install(dir, v, onProgress)
	})
	if err != nil {
		return "", err
	}
	return binaryPath(dir), nil
}

func (in *Installer) install(dir string, v Version, onProgress httpfetch.ProgressFunc) error {
	entry, ok, err := in.lookupMojangEntry(v)
	if err != nil {
		return err
	}
	if ok {
		return in.installFromMojang(dir, entry, onProgress)
	}

	url, ok := alternateURL(currentGOOSName(), paths.CurrentArch(), v)
	if !ok {
		return errUnsupported(currentGOOSName(), paths.CurrentArch(), v)
	}
	data, err := in.Fetcher.GetBytes(url, httpfetch.UADefault)
	if err != nil {
		return err
	}
	switch {
	case strings.HasSuffix(url, "tar.gz"):
		return extractTarGz(data, dir)
	case strings.HasSuffix(url, "zip"):
		return extractArchive(data, dir)
	default:
		return &qerrors.UnknownExtension{URL: url}
	}
}

func (in *Installer) lookupMojangEntry(v Version) (*runtimeManifestEntry, bool, error) {
	var top map[string]json.RawMessage
	if err := in.Fetcher.GetJSON(manifestURL, &top); err != nil {
		return nil, false, nil // treat manifest fetch failure as "not provided by Mojang"
	}
	osKey := manifestOSKey()
	raw, ok := top[osKey]
	if !ok {
		return nil, false, nil
	}
	var perComponent map[string][]runtimeManifestEntry
	if err := json.Unmarshal(raw, &perComponent); err != nil {
		return nil, false, nil
	}
	entries, ok := perComponent[v.mojangComponent()]
	if !ok || len(entries) == 0 {
		return nil, false, nil
	}
	return &entries[0], true, nil
}

func (in *Installer) installFromMojang(dir string, entry *runtimeManifestEntry, onProgress httpfetch.ProgressFunc) error {
	listBytes, err := in.Fetcher.GetBytes(entry.Manifest.URL, httpfetch.UADefault)
	if err != nil {
		return err
	}
	var list fileListJSON
	if err := json.Unmarshal(listBytes, &list); err != nil {
		return &qerrors.Json{Text: string(listBytes), Cause: err}
	}

	jobs := make([]httpfetch.Job, 0, len(list.Files))
	for relPath, fe := range list.Files {
		relPath, fe := relPath, fe
		jobs = append(jobs, httpfetch.Job{
			Name: relPath,
			Run: func() error { return in.installFile(dir, relPath, fe) },
		})
	}
	return httpfetch.DoJobsWithLimit(jobs, httpfetch.ConcurrencyLimit(), onProgress)
}

func (in *Installer) installFile(dir, relPath string, fe fileEntry) error {
	target := filepath.Join(dir, filepath.FromSlash(relPath))
	switch fe.Type {
	case "directory":
		return os.MkdirAll(target, 0o755)
	case "link":
		// Open Question (a): link entries are skipped; no symlink is
		// created and the entry is not recorded anywhere.
		return nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return &qerrors.Io{Path: filepath.Dir(target), Cause: err}
		}
		data, err := in.downloadJavaFile(fe)
		if err != nil {
			return err
		}
		if err := paths.AtomicWrite(target, data); err != nil {
			return err
		}
		if fe.Executable {
			os.Chmod(target, 0o755)
		}
		return nil
	default:
		return nil
	}
}

// downloadJavaFile decompresses the LZMA-family variant, falling back to
// the sibling raw URL on decode failure, per §4.E step 2.
func (in *Installer) downloadJavaFile(fe fileEntry) ([]byte, error) {
	if fe.Downloads.LZMA != nil {
		compressed, err := in.Fetcher.GetBytes(fe.Downloads.LZMA.URL, httpfetch.UADefault)
		if err == nil {
			if decoded, derr := decodeXZish(compressed); derr == nil {
				return decoded, nil
			}
		}
	}
	if fe.Downloads.Raw != nil {
		return in.Fetcher.GetBytes(fe.Downloads.Raw.URL, httpfetch.UADefault)
	}
	return nil, &qerrors.NoFilesFound{}
}

// decodeXZish decompresses via the xi2/xz codec, the closest available
// match in the dependency pack to Mojang's true LZMA-alone framing (see
// DESIGN.md for the caveat).
func decodeXZish(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data), 0)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func applyPlatformOverride(v Version) Version {
	os_, arch := paths.CurrentOS(), paths.CurrentArch()
	switch {
	case os_ == paths.OSWindows && arch == "arm64" && (v == Java8 || v == Java16):
		return Java17
	case os_ == paths.OSMacOS && arch == "arm64" && v == Java16:
		return Java17
	case os_ == paths.OSLinux && arch == "arm" && v != Java8:
		// Linux ARM 32-bit supports Java 8 only; callers requesting a
		// newer tag are handed Java8 and will likely fail to run modern
		// versions, matching the upstream table's documented limitation.
		return Java8
	default:
		return v
	}
}

func binaryPath(dir string) string {
	name := "java"
	if paths.CurrentOS() == paths.OSWindows {
		name = "java.exe"
	}
	if paths.CurrentOS() == paths.OSMacOS {
		return filepath.Join(dir, "Contents", "Home", "bin", name)
	}
	return filepath.Join(dir, "bin", name)
}

// BinaryForLaunch returns "javaw.exe" instead of "java.exe" on Windows when
// the caller wants the console-suppressing client launcher, per §4.E.
func BinaryForLaunch(javaBinPath string, suppressConsole bool) string {
	if suppressConsole && paths.CurrentOS() == paths.OSWindows {
		return strings.TrimSuffix(javaBinPath, "java.exe") + "javaw.exe"
	}
	return javaBinPath
}

func extractTarGz(data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		path := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			os.MkdirAll(path, 0o755)
		case tar.TypeReg:
			os.MkdirAll(filepath.Dir(path), 0o755)
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}

func extractArchive(data []byte, dest string) error {
	ctx := context.Background()
	format, reader, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err != nil {
		return err
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return &qerrors.UnknownExtension{URL: "archive"}
	}
	return ex.Extract(ctx, reader, func(_ context.Context, f archives.FileInfo) error {
		target := filepath.Join(dest, filepath.FromSlash(f.NameInArchive))
		if f.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		os.MkdirAll(filepath.Dir(target), 0o755)
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, rc)
		return err
	})
}
