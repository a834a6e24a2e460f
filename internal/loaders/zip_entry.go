package loaders

import (
	"archive/zip"
	"io"

	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// extractZipEntry reads a single named entry out of a zip file. Kept on
// stdlib archive/zip rather than mholt/archives (used elsewhere for full
// archive extraction): this is a single-entry probe into a jar whose other
// contents are irrelevant, not a general extraction concern.
func extractZipEntry(zipPath, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, &qerrors.Io{Path: zipPath, Cause: err}
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name == entryName {
			rc, err := f.Open()
			if err != nil {
				return nil, &qerrors.Io{Path: zipPath, Cause: err}
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, &qerrors.NoInstallJson{}
}

// listJarPaths walks dir recursively for *.jar files. The launch-time
// OptiFine classpath sweep does not use it; internal/launch has its own walk.
func listJarPaths(dir string) []string { return walkExt(dir, ".jar") }
