package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

const paperBuildsURL = "https://fill.papermc.io/v3/projects/paper/versions/%s/builds"

type paperBuild struct {
	ID        int    `json:"id"`
	Channel   string `json:"channel"`
	Downloads struct {
		ServerDefault struct {
			URL  string `json:"url"`
			Name string `json:"name"`
		} `json:"server:default"`
	} `json:"downloads"`
}

// InstallPaper implements §4.F's Paper paragraph (server only): fetch the
// builds list, take the newest entry, and download the server jar.
func InstallPaper(fetcher *httpfetch.Fetcher, serverDir, gameVersion string) error {
	url := fmt.Sprintf(paperBuildsURL, gameVersion)
	var builds []paperBuild
	if err := fetcher.GetJSON(url, &builds); err != nil {
		return err
	}
	if len(builds) == 0 {
		return &qerrors.NoCompatibleVersionFound{Name: gameVersion}
	}
	newest := builds[len(builds)-1]
	if newest.Downloads.ServerDefault.URL == "" {
		return &qerrors.NoFilesFound{}
	}

	jarPath := filepath.Join(serverDir, "paper_server.jar")
	return fetcher.DownloadToPath(newest.Downloads.ServerDefault.URL, jarPath, true)
}

// UninstallPaper reverts the nether/end relocation Paper performs on first
// run, per §4.F: move world_nether/DIM-1 and world_the_end/DIM1 back into
// world/, then delete the now-empty relocated folders.
func UninstallPaper(serverDir string) error {
	moves := []struct{ from, to string }{
		{filepath.Join(serverDir, "world_nether", "DIM-1"), filepath.Join(serverDir, "world", "DIM-1")},
		{filepath.Join(serverDir, "world_the_end", "DIM1"), filepath.Join(serverDir, "world", "DIM1")},
	}
	for _, m := range moves {
		if _, err := os.Stat(m.from); err != nil {
			continue
		}
		if err := os.Rename(m.from, m.to); err != nil {
			return &qerrors.Io{Path: m.from, Cause: err}
		}
	}
	os.RemoveAll(filepath.Join(serverDir, "world_nether"))
	os.RemoveAll(filepath.Join(serverDir, "world_the_end"))
	os.Remove(filepath.Join(serverDir, "paper_server.jar"))
	return nil
}
