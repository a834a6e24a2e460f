package javaruntime

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

//go:embed alternate_table.yaml
var alternateTableYAML []byte

type alternateRow struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
	Tag  string `yaml:"tag"`
	URL  string `yaml:"url"`
}

type alternateTable struct {
	Entries []alternateRow `yaml:"entries"`
}

var loadedAlternateTable *alternateTable

func alternateURL(goos, arch string, v Version) (string, bool) {
	if loadedAlternateTable == nil {
		var t alternateTable
		if err := yaml.Unmarshal(alternateTableYAML, &t); err != nil {
			return "", false
		}
		loadedAlternateTable = &t
	}
	tag := v.tagKey()
	for _, row := range loadedAlternateTable.Entries {
		if row.OS == goos && row.Arch == arch && row.Tag == tag {
			return row.URL, true
		}
	}
	return "", false
}

// errUnsupported mirrors alternate_java.rs's error_unsupported: Java
// 16/17/21 on a platform that DOES support Java 8 reports
// UnsupportedOnlyJava8 (telling the user "you can still play old
// versions"); anything else reports the generic UnsupportedPlatform.
func errUnsupported(goos, arch string, v Version) error {
	if v == Java16 || v == Java17 || v == Java21 {
		if _, ok := alternateURL(goos, arch, Java8); ok {
			return &qerrors.UnsupportedOnlyJava8{}
		}
		return &qerrors.UnsupportedPlatform{}
	}
	return &qerrors.UnsupportedPlatform{}
}

func currentGOOSName() string {
	switch paths.CurrentOS() {
	case paths.OSWindows:
		return "windows"
	case paths.OSMacOS:
		return "darwin"
	case paths.OSLinux:
		return "linux"
	default:
		return "unknown"
	}
}
