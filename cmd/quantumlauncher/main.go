// Command quantumlauncher is the headless core's CLI front end: instance
// lifecycle and the launch pipeline exposed as cobra subcommands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantumlauncher/qlcore/internal/account"
	"github.com/quantumlauncher/qlcore/internal/assets"
	"github.com/quantumlauncher/qlcore/internal/creds"
	"github.com/quantumlauncher/qlcore/internal/httpfetch"
	"github.com/quantumlauncher/qlcore/internal/instance"
	"github.com/quantumlauncher/qlcore/internal/javaruntime"
	"github.com/quantumlauncher/qlcore/internal/launch"
	"github.com/quantumlauncher/qlcore/internal/loaders"
	"github.com/quantumlauncher/qlcore/internal/logging"
	"github.com/quantumlauncher/qlcore/internal/mojang"
	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/process"
	"github.com/quantumlauncher/qlcore/internal/qlconfig"
)

type app struct {
	root    *paths.Root
	log     *logging.Logger
	fetcher *httpfetch.Fetcher
	java    *javaruntime.Installer
	assets  *assets.Installer
	procs   *process.Registry
}

func newApp() (*app, error) {
	root, err := paths.Resolve()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(root.Dir)
	if err != nil {
		return nil, err
	}
	fetcher := httpfetch.New(root)
	return &app{
		root:    root,
		log:     log,
		fetcher: fetcher,
		java:    javaruntime.New(root, fetcher),
		assets:  assets.New(root, fetcher),
		procs:   process.NewRegistry(log),
	}, nil
}

func main() {
	root := &cobra.Command{
		Use:   "quantumlauncher",
		Short: "QuantumLauncher core: instance lifecycle and launch pipeline",
	}
	root.PersistentFlags().Bool("no-sandbox", false, "ignored; accepted for launcher-wrapper compatibility")
	root.PersistentFlags().MarkHidden("no-sandbox")

	root.AddCommand(
		newCreateCmd(),
		newLaunchCmd(),
		newDeleteCmd(),
		newListInstancesCmd(),
		newListServersCmd(),
		newListVersionsCmd(),
		newLoginOfflineCmd(),
		newLoginLittleSkinCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	var loaderName string
	var server bool
	cmd := &cobra.Command{
		Use:   "create <name> <version>",
		Short: "Create a new instance or server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind := instance.KindClient
			if server {
				kind = instance.KindServer
			}
			sel := instance.Selection{Kind: kind, Name: args[0]}
			_, err = instance.Create(a.root, sel, args[1], loaders.Parse(loaderName))
			if err != nil {
				return err
			}
			a.log.Success("created %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&loaderName, "loader", "Vanilla", "mod loader (Vanilla, Fabric, Quilt, Forge, NeoForge, OptiFine, Paper)")
	cmd.Flags().BoolVar(&server, "server", false, "create a server instead of a client instance")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an instance or server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind := instance.KindClient
			if server {
				kind = instance.KindServer
			}
			if err := instance.Delete(a.root, instance.Selection{Kind: kind, Name: args[0]}); err != nil {
				return err
			}
			a.log.Success("deleted %s", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "operate on a server instead of a client instance")
	return cmd
}

func newListInstancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-instances",
		Short: "List client instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			names, err := instance.List(a.root, instance.KindClient)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newListServersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-servers",
		Short: "List servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			names, err := instance.List(a.root, instance.KindServer)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newListVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-available-versions",
		Short: "List Mojang version IDs available to create an instance from",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			resolver := mojang.NewResolver(a.fetcher)
			m, err := resolver.FetchManifest()
			if err != nil {
				return err
			}
			for _, v := range m.Versions {
				fmt.Println(v.ID)
			}
			return nil
		},
	}
}

func newLaunchCmd() *cobra.Command {
	var server bool
	var username string
	cmd := &cobra.Command{
		Use:   "launch <name>",
		Short: "Run the full launch pipeline for an instance and spawn it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind := instance.KindClient
			if server {
				kind = instance.KindServer
			}
			sel := instance.Selection{Kind: kind, Name: args[0]}
			return a.runLaunchPipeline(sel, username)
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "launch a server instead of a client instance")
	cmd.Flags().StringVar(&username, "username", "Player", "offline username to launch with")
	return cmd
}

// runLaunchPipeline implements the control-flow order from §2: resolve the
// version plan (cached as details.json), ensure assets and Java are
// installed, build the launch command, then spawn and stream its output.
// Mod loaders are not installed here; a loader install is a separate step.
func (a *app) runLaunchPipeline(sel instance.Selection, username string) error {
	dir := sel.Dir(a.root)
	cfg, err := instance.LoadConfig(dir)
	if err != nil {
		return err
	}
	if !cfg.IsServer {
		if err := instance.ValidateUsername(username); err != nil {
			return err
		}
	}

	resolver := mojang.NewResolver(a.fetcher)
	manifest, err := resolver.FetchManifest()
	if err != nil {
		return err
	}
	plan, err := resolver.Resolve(manifest, cfg.VersionID)
	if err != nil {
		return err
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	if err := paths.AtomicWrite(instance.DetailsPath(dir), planJSON); err != nil {
		return err
	}

	a.log.Step("resolving assets for %s", cfg.VersionID)
	if err := a.assets.Install(plan.AssetIndex, nil); err != nil {
		return err
	}

	javaBin := cfg.JavaPath
	if javaBin == "" {
		javaVersion := javaruntime.Java8
		if plan.JavaVersion != nil {
			javaVersion = javaruntime.FromMajor(plan.JavaVersion.MajorVersion)
		}
		javaBin, err = a.java.EnsureJava(javaVersion, nil)
		if err != nil {
			return err
		}
	}

	// Offline-mode auth sentinels (§4.H scenario 1): no account provider is
	// consulted here, so auth_access_token/auth_xuid are Mojang's literal
	// offline placeholder and auth_uuid is the reproducible offline UUID
	// derived from the username.
	uuid := account.CreateOffline(username).UUID
	accessToken := "0"

	spec := launch.Spec{
		Root:          a.root,
		InstanceDir:   dir,
		InstanceName:  sel.Name,
		Plan:          plan,
		Loader:        cfg.ModType,
		JavaBinPath:   javaBin,
		RamMB:         cfg.RamInMB,
		ExtraJVMArgs:  cfg.ExtraJavaArgs,
		JVMArgsMode:   cfg.JavaArgsMode,
		ExtraGameArgs: cfg.ExtraGameArgs,
		Username:      username,
		UUID:          uuid,
		AccessToken:   accessToken,
		UserType:      "legacy",
		CustomJarPath:  cfg.CustomJarPath,
		IsServer:       cfg.IsServer,
		PrefixMode:     cfg.PreLaunchPrefixMode,
		InstancePrefix: cfg.PreLaunchPrefix,
	}
	command, err := launch.Build(spec)
	if err != nil {
		return err
	}

	var censor []string
	if accessToken != "0" {
		censor = append(censor, accessToken)
	}

	a.log.Step("launching %s", sel.Name)
	handle, err := a.procs.Spawn(sel.Name, command, cfg.IsServer, cfg.IsClassicServer, cfg.EnableLogger, censor)
	if err != nil {
		return err
	}

	for ev := range handle.Events() {
		if ev.Plain {
			fmt.Println(ev.RawLine)
		} else {
			fmt.Printf("[%s] [%s/%s] %s\n", ev.FormattedTime(), ev.Thread, ev.Level, ev.Message)
		}
	}
	return handle.Wait()
}

func newLoginOfflineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-offline <username>",
		Short: "Add an offline-mode account (no network authentication)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := qlconfig.Load(a.root)
			if err != nil {
				return err
			}
			ref := account.CreateOffline(args[0])
			cfg.Accounts[ref.Username+"#"+ref.Provider] = ref
			cfg.AccountSelected = ref.Username + "#" + ref.Provider
			if err := cfg.Save(a.root); err != nil {
				return err
			}
			a.log.Success("added offline account %s (uuid %s)", ref.Username, ref.UUID)
			return nil
		},
	}
}

// newLoginLittleSkinCmd drives the device-code login (§6's "littleskin"
// account provider): request a code, show it to the player, then block
// until they approve it from a browser.
func newLoginLittleSkinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-littleskin",
		Short: "Add an account via LittleSkin's device-code login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := qlconfig.Load(a.root)
			if err != nil {
				return err
			}

			ctx := context.Background()
			da, err := account.StartDeviceLogin(ctx, account.LittleSkin)
			if err != nil {
				return err
			}
			fmt.Printf("Visit %s and enter code %s\n", da.VerificationURI, da.UserCode)

			store := creds.NewFileStore(a.root)
			username, err := account.ReadPastedToken("Press enter once approved, or paste a username to label the account: ")
			if err != nil {
				return err
			}
			if username == "" {
				username = "littleskin-player"
			}
			ref, err := account.PollDeviceLogin(ctx, account.LittleSkin, da, username, store)
			if err != nil {
				return err
			}
			cfg.Accounts[ref.Username+"#"+ref.Provider] = ref
			cfg.AccountSelected = ref.Username + "#" + ref.Provider
			if err := cfg.Save(a.root); err != nil {
				return err
			}
			a.log.Success("added littleskin account %s", ref.Username)
			return nil
		},
	}
}
