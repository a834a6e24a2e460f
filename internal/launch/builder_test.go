package launch

import (
	"strings"
	"testing"

	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
)

func testRoot(t *testing.T) *paths.Root {
	t.Helper()
	dir := t.TempDir()
	return &paths.Root{Dir: dir}
}

func minimalPlan() *mojang.VersionPlan {
	return &mojang.VersionPlan{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		GameArgs:  []string{"--username", "${auth_player_name}", "--uuid", "${auth_uuid}"},
		JVMArgs:   []string{"-Djava.library.path=${natives_directory}"},
		Libraries: []mojang.Library{
			{Name: "com.mojang:brigadier:1.0.18", Artifact: &mojang.Artifact{Path: "com/mojang/brigadier/1.0.18/brigadier-1.0.18.jar"}},
		},
	}
}

func TestBuildSubstitutesGameArgs(t *testing.T) {
	s := Spec{
		Root:        testRoot(t),
		InstanceDir: t.TempDir(),
		Plan:        minimalPlan(),
		Loader:      loaders.Vanilla,
		JavaBinPath: "/usr/bin/java",
		Username:    "Notch",
		UUID:        "11111111-2222-3333-4444-555555555555",
	}

	cmd, err := Build(s)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	joined := strings.Join(cmd.Args, " ")
	if strings.Contains(joined, "${") {
		t.Errorf("unsubstituted variable left in args: %s", joined)
	}
	if !strings.Contains(joined, "Notch") {
		t.Errorf("expected username in args: %s", joined)
	}
}

func TestResolveJVMArgsAppendVsReplace(t *testing.T) {
	plan := minimalPlan()

	appendSpec := Spec{Plan: plan, ExtraJVMArgs: []string{"-Dfoo=bar"}, JVMArgsMode: JavaArgsAppend}
	appended := resolveJVMArgs(appendSpec)
	if len(appended) < len(plan.JVMArgs)+1 {
		t.Errorf("append mode should keep the plan's jvm args and add the extra one")
	}

	replaceSpec := Spec{Plan: plan, ExtraJVMArgs: []string{"-Dfoo=bar"}, JVMArgsMode: JavaArgsReplace}
	replaced := resolveJVMArgs(replaceSpec)
	for _, a := range replaced {
		if a == plan.JVMArgs[0] {
			t.Errorf("replace mode should drop the plan's own jvm args, found %q", a)
		}
	}
}

func TestComposeClasspathDedupesByGroupArtifact(t *testing.T) {
	root := testRoot(t)
	plan := minimalPlan()
	plan.Libraries = append(plan.Libraries, mojang.Library{
		Name:     "com.mojang:brigadier:1.0.17", // older version, same group:artifact
		Artifact: &mojang.Artifact{Path: "com/mojang/brigadier/1.0.17/brigadier-1.0.17.jar"},
	})

	cp, err := composeClasspath(Spec{Root: root, Plan: plan, InstanceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("composeClasspath failed: %v", err)
	}
	if strings.Count(cp, "brigadier") != 1 {
		t.Errorf("expected brigadier to appear exactly once after dedup, got classpath %q", cp)
	}
}

func TestVariableTableLegacyAssetsRoot(t *testing.T) {
	root := testRoot(t)
	plan := minimalPlan()
	plan.AssetIndex.ID = "legacy"

	vars := variableTable(Spec{Root: root, Plan: plan}, "", "")
	if vars["assets_root"] != root.AssetsLegacy() {
		t.Errorf("legacy asset index should route assets_root to the legacy mirror, got %q", vars["assets_root"])
	}
}

func TestVariableTableOfflineXuidIsZero(t *testing.T) {
	root := testRoot(t)
	plan := minimalPlan()

	vars := variableTable(Spec{Root: root, Plan: plan, UserType: "legacy", UUID: "11111111-2222-3333-4444-555555555555"}, "", "")
	if vars["auth_xuid"] != "0" {
		t.Errorf("expected auth_xuid to be the literal 0 offline, got %q", vars["auth_xuid"])
	}

	msaVars := variableTable(Spec{Root: root, Plan: plan, UserType: "msa", UUID: "11111111-2222-3333-4444-555555555555"}, "", "")
	if msaVars["auth_xuid"] != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("expected a Microsoft account to carry its uuid through as auth_xuid, got %q", msaVars["auth_xuid"])
	}
}

func TestResolveJVMArgsAddsBetacraftProxyForOldVersions(t *testing.T) {
	plan := minimalPlan()
	plan.Type = "old_alpha"
	args := resolveJVMArgs(Spec{Plan: plan})

	found := false
	for _, a := range args {
		if a == "-Dhttp.proxyHost=betacraft.uk" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the betacraft proxy arg for an old_alpha version, got %v", args)
	}

	plan.Type = "release"
	released := resolveJVMArgs(Spec{Plan: plan})
	for _, a := range released {
		if a == "-Dhttp.proxyHost=betacraft.uk" {
			t.Errorf("release versions should not get the betacraft proxy arg")
		}
	}
}
