package modstore

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestProbeModpackKind(t *testing.T) {
	curseforge := zipWithEntry(t, "manifest.json", `{}`)
	if ProbeModpackKind(curseforge) != ModpackCurseForge {
		t.Errorf("expected manifest.json to be detected as a CurseForge pack")
	}

	modrinth := zipWithEntry(t, "modrinth.index.json", `{}`)
	if ProbeModpackKind(modrinth) != ModpackModrinth {
		t.Errorf("expected modrinth.index.json to be detected as a Modrinth pack")
	}

	unknown := zipWithEntry(t, "readme.txt", "hello")
	if ProbeModpackKind(unknown) != ModpackUnknown {
		t.Errorf("expected an unrecognized zip to report ModpackUnknown")
	}
}

func TestBuildThenLoadPresetRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	idx := NewIndex()
	idx.AddMod(ID(SourceModrinth, "sodium"), &ModRecord{
		DisplayName: "Sodium", Source: SourceModrinth, ProjectID: "sodium", Enabled: true,
	})
	if err := idx.Save(srcDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	destPath := srcDir + ".qmp"
	if err := BuildPreset(srcDir, "1.20.1", "client", destPath); err != nil {
		t.Fatalf("BuildPreset failed: %v", err)
	}

	targetDir := t.TempDir()
	loaded, err := LoadPreset(destPath, targetDir, "1.20.1", "client")
	if err != nil {
		t.Fatalf("LoadPreset failed: %v", err)
	}
	if _, ok := loaded.Mods[ID(SourceModrinth, "sodium")]; !ok {
		t.Errorf("expected the preset's mod entry to carry over into the target index")
	}
}

func zipWithEntry(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(content))
	zw.Close()
	return buf.Bytes()
}
