// Package launch implements the Launch Command Builder (§4.H): it composes
// the JVM argument list, classpath, and game argument list for a resolved
// instance, substituting every named ${variable} token, and hands back a
// ready-to-spawn command line. It never spawns anything itself — see
// internal/process for that.
package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quantumlauncher/qlcore/internal/javaruntime"
	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// JavaArgsMode controls how an instance's extra JVM args combine with the
// resolved version's own JVM args (ported from instance_config.rs).
type JavaArgsMode int

const (
	JavaArgsAppend JavaArgsMode = iota
	JavaArgsReplace
)

// PrefixMode controls how an instance's pre-launch command prefix (e.g. a
// sandboxing wrapper like firejail) combines with the launcher-wide default
// prefix, mirroring instance_config.rs's PreLaunchPrefixMode.
type PrefixMode int

const (
	PrefixNone PrefixMode = iota
	PrefixAppendGlobal
	PrefixOverrideGlobal
)

// CombinePrefix implements Open Question (b): when global is empty, Append
// degrades to just the instance's own prefix with no special-casing — the
// empty list is appended silently, matching CombineLocalGlobal's behavior
// in ql_core/src/json/instance_config.rs.
func CombinePrefix(mode PrefixMode, instancePrefix, global []string) []string {
	switch mode {
	case PrefixOverrideGlobal:
		return instancePrefix
	case PrefixAppendGlobal:
		return append(append([]string{}, global...), instancePrefix...)
	default:
		return nil
	}
}

// Spec is everything the builder needs to compose one launch; it is
// deliberately decoupled from the instance package's config shape so the two
// can evolve independently.
type Spec struct {
	Root         *paths.Root
	InstanceDir  string // instances/<name> or servers/<name>
	InstanceName string
	Plan         *mojang.VersionPlan
	Loader       loaders.Loader
	JavaBinPath  string
	RamMB        int

	ExtraJVMArgs  []string
	JVMArgsMode   JavaArgsMode
	ExtraGameArgs []string

	Username   string
	UUID       string
	AccessToken string
	UserType   string // "msa" or "legacy"

	WindowWidth  int // 0 means unset
	WindowHeight int

	CustomJarPath string // overlay/final jar, appended last to the classpath
	IsServer      bool
	SuppressConsole bool // Windows: launch javaw instead of java

	PrefixMode     PrefixMode
	InstancePrefix []string // e.g. {"firejail", "--net=none"}
	GlobalPrefix   []string
}

// Command is the fully composed, ready-to-exec launch description.
type Command struct {
	JavaBin string
	Args    []string // jvm args, main class, game args, in final order
	Dir     string   // working directory (the instance dir)
}

// Build implements §4.H: classpath composition, JVM/game argument assembly,
// and full ${variable} substitution.
func Build(s Spec) (*Command, error) {
	if s.Plan == nil {
		return nil, &qerrors.NoInstallJson{}
	}

	classpath, err := composeClasspath(s)
	if err != nil {
		return nil, err
	}

	nativesDir := filepath.Join(s.InstanceDir, "natives")
	vars := variableTable(s, classpath, nativesDir)

	var args []string
	args = append(args, resolveJVMArgs(s)...)
	args = append(args, "-cp", classpath)
	args = append(args, mainClassFor(s))
	args = append(args, substituteAll(s.Plan.GameArgs, vars)...)
	args = append(args, substituteAll(s.ExtraGameArgs, vars)...)

	for i, a := range args {
		args[i] = substitute(a, vars)
	}

	javaBin := javaruntime.BinaryForLaunch(s.JavaBinPath, s.SuppressConsole && !s.IsServer)

	prefix := CombinePrefix(s.PrefixMode, s.InstancePrefix, s.GlobalPrefix)
	if len(prefix) > 0 {
		args = append([]string{javaBin}, args...)
		javaBin = prefix[0]
		args = append(append([]string{}, prefix[1:]...), args...)
	}

	return &Command{JavaBin: javaBin, Args: args, Dir: s.InstanceDir}, nil
}

// mainClassFor picks the loader-appropriate entry point; Forge/NeoForge
// override the vanilla main class once their profile is installed, Fabric's
// profile carries its own, and the rest launch vanilla's.
func mainClassFor(s Spec) string {
	switch s.Loader {
	case loaders.Fabric, loaders.Quilt:
		if profile, err := readFabricProfile(s.InstanceDir); err == nil && profile.MainClass != "" {
			return profile.MainClass
		}
	case loaders.Forge, loaders.NeoForge:
		if mc, err := forgeMainClass(s.InstanceDir); err == nil && mc != "" {
			return mc
		}
	}
	return s.Plan.MainClass
}

// composeClasspath implements the exact ordering required by §4.H: Forge's
// classpath.txt/clean_classpath.txt seed first (so Forge-pinned library
// versions win dedup ties), then any OptiFine overlay jars swept
// recursively, then vanilla libraries deduped by group:artifact, then
// Fabric/Quilt libraries, and finally the custom/overlay jar last.
func composeClasspath(s Spec) (string, error) {
	sep := paths.ClasspathSeparator()
	var entries []string
	seen := map[string]bool{}

	add := func(path, dedupeKey string) {
		if dedupeKey != "" {
			if seen[dedupeKey] {
				return
			}
			seen[dedupeKey] = true
		}
		entries = append(entries, path)
	}

	if s.Loader == loaders.Forge || s.Loader == loaders.NeoForge {
		forgeDir := filepath.Join(s.InstanceDir, "forge")
		clean, err := loaders.ReadCleanClasspath(forgeDir)
		absPaths := readForgeClasspathFile(forgeDir)
		if err == nil && len(absPaths) == len(clean) {
			for i, key := range clean {
				add(absPaths[i], key)
			}
		}
	}

	if s.Loader == loaders.OptiFine {
		versionsDir := filepath.Join(s.InstanceDir, "versions")
		entriesDir, _ := os.ReadDir(versionsDir)
		for _, e := range entriesDir {
			if e.IsDir() && strings.Contains(e.Name(), "OptiFine") {
				for _, jar := range walkJars(filepath.Join(versionsDir, e.Name())) {
					add(jar, "")
				}
			}
		}
	}

	for _, lib := range s.Plan.Libraries {
		if lib.Artifact == nil {
			continue
		}
		add(filepath.Join(s.Root.Join("libraries"), filepath.FromSlash(lib.Artifact.Path)), lib.GroupArtifact())
	}

	if s.Loader == loaders.Fabric || s.Loader == loaders.Quilt {
		if profile, err := readFabricProfile(s.InstanceDir); err == nil {
			for _, lib := range profile.Libraries {
				path := mavenPathFor(lib.Name)
				add(filepath.Join(s.Root.Join("libraries"), filepath.FromSlash(path)), lib.GroupArtifact())
			}
		}
	}

	if s.CustomJarPath != "" {
		entries = append(entries, s.CustomJarPath)
	}

	return strings.Join(entries, sep), nil
}

func readForgeClasspathFile(forgeDir string) []string {
	data, err := os.ReadFile(filepath.Join(forgeDir, "classpath.txt"))
	if err != nil {
		return nil
	}
	return strings.Split(string(data), paths.ClasspathSeparator())
}

func walkJars(dir string) []string {
	var out []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && info != nil && !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".jar") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func mavenPathFor(name string) string {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return ""
	}
	group := strings.ReplaceAll(parts[0], ".", "/")
	artifact, version := parts[1], parts[2]
	return group + "/" + artifact + "/" + version + "/" + artifact + "-" + version + ".jar"
}

func readFabricProfile(instanceDir string) (*loaders.Profile, error) {
	data, err := os.ReadFile(filepath.Join(instanceDir, "fabric.json"))
	if err != nil {
		return nil, err
	}
	var p loaders.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func forgeMainClass(instanceDir string) (string, error) {
	path := filepath.Join(instanceDir, "forge", "main_class.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveJVMArgs implements instance_config.rs's JavaArgsMode merge: Append
// concatenates the instance's extra args after the resolved plan's own JVM
// args (-Xmx always wins by coming after), Replace drops the plan's JVM args
// entirely in favor of the instance's own list.
func resolveJVMArgs(s Spec) []string {
	var args []string
	switch s.JVMArgsMode {
	case JavaArgsReplace:
		args = append(args, s.ExtraJVMArgs...)
	default:
		args = append(args, s.Plan.JVMArgs...)
		args = append(args, s.ExtraJVMArgs...)
	}
	if s.RamMB > 0 {
		args = append(args, fmt.Sprintf("-Xmx%dM", s.RamMB))
	}
	if s.Plan.Type == "old_alpha" || s.Plan.Type == "old_beta" {
		// Classic/indev-era versions shipped with multiplayer servers that no
		// longer exist; betacraft.uk proxies their original server list so
		// these versions can still connect to something.
		args = append(args, "-Dhttp.proxyHost=betacraft.uk")
	}
	if s.Plan.Logging != nil && s.Plan.Logging.ArgumentTemplate != "" {
		args = append(args, strings.ReplaceAll(s.Plan.Logging.ArgumentTemplate, "${path}", logConfigPath(s)))
	}
	return args
}

func logConfigPath(s Spec) string {
	if s.Plan.Logging == nil {
		return ""
	}
	return s.Root.Join("assets", "log_configs", s.Plan.Logging.FileID)
}

// variableTable builds the full ${...} substitution set named in §4.H:
// auth/session tokens, assets root (assets/legacy_assets for the "legacy"
// index, assets/dir for every other index; there is no fallback to an
// assets/null directory when that directory is missing), natives directory,
// version name/type, and window geometry when set.
func variableTable(s Spec, classpath, nativesDir string) map[string]string {
	assetsRoot := s.Root.AssetsDir()
	assetsIndexName := s.Plan.AssetIndex.ID
	if assetsIndexName == "legacy" {
		assetsRoot = s.Root.AssetsLegacy()
	}

	// auth_xuid carries the account UUID for a Microsoft ("msa") account;
	// offline (and any other non-msa) launch reports the literal 0 Mojang's
	// own offline client sends.
	xuid := "0"
	if s.UserType == "msa" {
		xuid = s.UUID
	}

	vars := map[string]string{
		"auth_player_name":  s.Username,
		"auth_uuid":         s.UUID,
		"auth_access_token": s.AccessToken,
		"auth_xuid":         xuid,
		"user_type":         s.UserType,
		"version_name":      s.Plan.ID,
		"version_type":      s.Plan.Type,
		"game_directory":    s.InstanceDir,
		"assets_root":       assetsRoot,
		"assets_index_name": assetsIndexName,
		"natives_directory": nativesDir,
		"classpath":         classpath,
		"library_directory": s.Root.Join("libraries"),
		"classpath_separator": paths.ClasspathSeparator(),
		"launcher_name":     "QuantumLauncher",
		"launcher_version":  "1.0",
		"clientid":          "",
		"quickPlayPath":     "",
	}
	if s.WindowWidth > 0 {
		vars["resolution_width"] = strconv.Itoa(s.WindowWidth)
	}
	if s.WindowHeight > 0 {
		vars["resolution_height"] = strconv.Itoa(s.WindowHeight)
	}
	return vars
}

func substitute(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

func substituteAll(in []string, vars map[string]string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = substitute(s, vars)
	}
	return out
}
