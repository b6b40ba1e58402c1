package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vatplayback/archivist/internal/cliconfig"
)

const helpBanner = `
VATPlayback Archivist
Copyright (C) 2025 DIY Labs
Licensed under GNU GPL V3.
`

const helpDescription = `
Record the VATSIM network data feed so it can be played back later.

Highlights:
  - Fetches the feed on a fixed cadence and stores every payload as its own file.
  - Writes atomically; a crash never leaves a partial snapshot behind.
  - Stops after a snapshot ceiling, or keeps a rolling window with --continuous.
  - Configure via file, env (ARCHIVIST_*), or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  archivist record
  archivist record --ceiling 40 --interval 15s --storage-dir ./recordings
  archivist record --continuous --metrics-addr :9464
  archivist list -o json
  archivist follow --latest
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func versionString() string {
	return fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH)
}

// cli carries the flags shared by every subcommand.
type cli struct {
	cfgPath string
	cfg     cliconfig.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "archivist",
		Short:         "Record the VATSIM network data feed for later playback",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.archivist/config.toml)")
	root.PersistentFlags().StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.cfg.LogJSON, "log-json", c.cfg.LogJSON, "emit logs as JSON lines")

	root.AddCommand(
		newRecordCmd(c),
		newListCmd(c),
		newFollowCmd(c),
		newPruneCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the archivist version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n\narchivist %s (%s)\n",
				strings.TrimSpace(helpBanner), versionString(), runtime.Version())
			return err
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "archivist: %v\n", err)
		os.Exit(1)
	}
}
