package main

import (
	"fmt"
	"log/slog"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"xlcompat/pkg/compat"
	"xlcompat/pkg/config"
	"xlcompat/pkg/display"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	disp    display.Display
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"prefix":          "prefix",
	"startup-type":    "startup_type",
	"custom-bin-path": "custom_bin_path",
	"tools-dir":       "tools_dir",
	"log-file":        "log_file",
	"variant":         "variant",
	"spawn-mode":      "spawn_mode",
	"runtime-url":     "runtime_url",
	"dxvk-hud":        "dxvk.hud",
	"dxvk-async":      "dxvk.async",
	"gamemode":        "gamemode",
	"debug-vars":      "debug_vars",
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "xlcompat",
		Short:         "Manage a Wine compatibility environment",
		Version:       config.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.disp != nil {
				a.disp.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/xlcompat/config.toml)")
	flags.String("prefix", "", "wine prefix directory")
	flags.String("startup-type", "", "managed or custom")
	flags.String("custom-bin-path", "", "directory holding wine64 for the custom startup type")
	flags.String("tools-dir", "", "directory runtime and DXVK releases are installed into")
	flags.String("log-file", "", "file guest stderr is written to")
	flags.String("variant", "", "runtime build flavour: arch, fedora or ubuntu")
	flags.String("spawn-mode", "", "direct or sandboxed")
	flags.String("runtime-url", "", "override the runtime archive URL")
	flags.String("dxvk-hud", "", "none, fps or full")
	flags.Bool("dxvk-async", false, "enable asynchronous shader compilation")
	flags.Bool("gamemode", false, "preload the gamemode library")
	flags.String("debug-vars", "", "WINEDEBUG value")

	bindFlags(a.v, flags)

	root.AddCommand(
		a.ensureCmd(),
		a.resetCmd(),
		a.runCmd(),
		a.pidsCmd(),
		a.hostPidCmd(),
		a.winepathCmd(),
		a.regCmd(),
		a.killCmd(),
		a.statusCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "xlcompat",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))

	a.disp = display.NewWriterDisplay(cmd.ErrOrStderr())
	a.disp.SetVerbose(a.verbose)

	switch {
	case a.cfgFile != "":
		a.v.SetConfigFile(a.cfgFile)
	default:
		if path, err := xdg.SearchConfigFile(config.AppName + "/config.toml"); err == nil {
			a.v.SetConfigFile(path)
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// settings loads the configuration. Viper only lets a flag override the
// config file and environment when it was set on the command line.
func (a *app) settings() (config.Settings, error) {
	return config.Load(a.v)
}

// tools builds the facade for commands that touch the prefix.
func (a *app) tools() (*compat.Tools, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	a.disp.Log(fmt.Sprintf("Prefix %s, runtime %s, spawn %s", s.Wine.Prefix, s.Wine64Path(), s.SpawnMode))
	return compat.New(s)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetBuildInfo())
		},
	}
}
