package instance

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/stretchr/testify/require"
)

func testRoot(t *testing.T) *paths.Root {
	t.Helper()
	return &paths.Root{Dir: t.TempDir()}
}

func TestCreateRenameDelete(t *testing.T) {
	root := testRoot(t)
	sel := Selection{Kind: KindClient, Name: "my-world"}

	cfg, err := Create(root, sel, "1.20.1", loaders.Fabric)
	require.NoError(t, err)
	require.Equal(t, "my-world", cfg.Name)
	require.Equal(t, loaders.Fabric, cfg.ModType)

	names, err := List(root, KindClient)
	require.NoError(t, err)
	require.Contains(t, names, "my-world")

	require.NoError(t, Rename(root, sel, "renamed-world"))
	renamed, err := LoadConfig(Selection{Kind: KindClient, Name: "renamed-world"}.Dir(root))
	require.NoError(t, err)
	require.Equal(t, "renamed-world", renamed.Name)

	require.NoError(t, Delete(root, Selection{Kind: KindClient, Name: "renamed-world"}))
	names, err = List(root, KindClient)
	require.NoError(t, err)
	require.NotContains(t, names, "renamed-world")
}

func TestCreateRefusesExistingDirectory(t *testing.T) {
	root := testRoot(t)
	sel := Selection{Kind: KindClient, Name: "dup"}
	_, err := Create(root, sel, "1.20.1", loaders.Vanilla)
	require.NoError(t, err)

	_, err = Create(root, sel, "1.20.1", loaders.Vanilla)
	require.Error(t, err)
}

func TestValidateUsernameRejectsWhitespace(t *testing.T) {
	require.NoError(t, ValidateUsername("Notch"))
	require.Error(t, ValidateUsername("bad name"))
	require.Error(t, ValidateUsername(""))
}

func TestConfigRoundTripPreservesUnknownFields(t *testing.T) {
	root := testRoot(t)
	sel := Selection{Kind: KindClient, Name: "forward-compat"}
	cfg, err := Create(root, sel, "1.20.1", loaders.Vanilla)
	require.NoError(t, err)

	dir := sel.Dir(root)
	// Simulate a newer launcher version writing a field this core doesn't
	// model yet, then confirm loading and re-saving doesn't drop it.
	path := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["some_future_field"] = json.RawMessage(`"kept"`)
	out, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	require.NoError(t, loaded.Save(dir))

	data2, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw2 map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data2, &raw2))
	require.Contains(t, raw2, "some_future_field")
	_ = cfg
}
