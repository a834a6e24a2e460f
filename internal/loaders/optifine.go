package loaders

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// InstallOptiFineResult records the overlay jar produced by the headless
// installer run, stored by callers under
// InstanceConfig.ModTypeInfo.OptifineJar.
type InstallOptiFineResult struct {
	OverlayJarPath string
}

// InstallOptiFine implements §4.F's OptiFine paragraph path (a): run the
// user-selected installer jar headlessly against a prepared vanilla-or-
// Forge base. Path (b), the b1.7.3 specialized legacy flow, has no
// general-purpose headless invocation upstream publishes and is left
// unimplemented pending a sample installer to validate against — every
// other OptiFine version goes through this function.
func InstallOptiFine(javaBin, installerJarPath, minecraftDir string) (*InstallOptiFineResult, error) {
	cmd := exec.Command(javaBin, "-cp", installerJarPath, "optifine.Installer", minecraftDir)
	var stdout, stderr strings.Builder
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return nil, &qerrors.InstallerError{Stdout: stdout.String(), Stderr: stderr.String()}
	}

	// The OptiFine installer drops its overlay jar into versions/<id>-OptiFine/.
	versionsDir := filepath.Join(minecraftDir, "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return nil, &qerrors.Io{Path: versionsDir, Cause: err}
	}
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), "OptiFine") {
			jars := listJarPaths(filepath.Join(versionsDir, e.Name()))
			if len(jars) > 0 {
				return &InstallOptiFineResult{OverlayJarPath: jars[0]}, nil
			}
		}
	}
	return nil, fmt.Errorf("optifine installer completed but produced no overlay jar")
}

// walkExt recursively collects files under dir matching ext, used for the
// overlay-jar lookup above.
func walkExt(dir, ext string) []string {
	var out []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			out = append(out, path)
		}
		return nil
	})
	return out
}
