// SPDX-License-Identifier: EPL-2.0

// Package cmd implements the mediaprobe commands.
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ik5/mediakit"
	"github.com/ik5/mediakit/internal/config"
	"github.com/ik5/mediakit/internal/observability"
)

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mediaprobe",
		Short: "Inspect and decode media files",
		Long: `mediaprobe detects the container format of media files, lists their
tracks and packets, and decodes audio tracks.

Settings are read from mediakit.yaml (in ., $HOME/.config/mediakit or
/etc/mediakit) and MEDIAKIT_ environment variables, for example
MEDIAKIT_STREAM_BUFFER_LEN=128KiB.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	// The logging flags are not bound to viper. They override the config
	// only when given explicitly.
	fs := root.PersistentFlags()
	fs.StringVar(&a.cfgFile, "config", "", "config file (default is mediakit.yaml in the search path)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text, json)")

	root.AddCommand(
		a.probeCmd(),
		a.tracksCmd(),
		a.packetsCmd(),
		a.decodeCmd(),
		a.configCmd(),
	)

	return root
}

// Execute runs the command line.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}

	applyLogFlags(cmd.Flags(), &cfg.Logging)
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = observability.WithComponent(observability.NewLoggerWithWriter(cfg.Logging, cmd.ErrOrStderr()), "mediaprobe")
	slog.SetDefault(a.log)

	return nil
}

// applyLogFlags copies explicitly set logging flags over lc.
func applyLogFlags(fs *pflag.FlagSet, lc *config.LoggingConfig) {
	if fs.Changed("log-level") {
		level, _ := fs.GetString("log-level")
		lc.Level = strings.ToLower(level)
	}
	if fs.Changed("log-format") {
		format, _ := fs.GetString("log-format")
		lc.Format = strings.ToLower(format)
	}

	if lc.Level == "warning" {
		lc.Level = "warn"
	}
}

func (a *app) options() mediakit.Options {
	opts := mediakit.DefaultOptions()
	opts.Stream = a.cfg.StreamOptions()
	opts.Probe = a.cfg.ProbeOptions()
	opts.Format = a.cfg.FormatOptions()
	opts.Metadata = a.cfg.MetadataOptions()
	opts.Decoder = a.cfg.DecoderOptions()
	opts.Logger = a.log

	return opts
}

// open probes path with a logger tagged with the file name.
func (a *app) open(path string) (*mediakit.File, mediakit.Options, error) {
	opts := a.options()
	opts.Logger = observability.WithFile(a.log, path)

	f, err := mediakit.OpenFile(path, opts)
	if err != nil {
		return nil, opts, err
	}

	return f, opts, nil
}
