// Package cli implements the termrig command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joeycumines/termrig/internal/config"
)

// app holds state shared by all subcommands, filled in by the root
// command's PersistentPreRunE.
type app struct {
	version     string
	configPath  string
	logLevel    string
	debugOutput bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the termrig command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:           "termrig",
		Short:         "Drive interactive CLIs under a pseudo-terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default $"+config.EnvConfigPath+" or ~/.termrig/config)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&a.debugOutput, "debug-output", false, "Log every raw output chunk of the target")

	root.AddCommand(
		newProbeCmd(a),
		newRunCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromPath(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := a.settings(cmd)
	if err != nil {
		return err
	}
	a.logger = newLogger(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
	for _, w := range a.cfg.Warnings {
		a.logger.Warn("config warning", "warning", w)
	}
	return nil
}

// settings resolves the config for cmd, with root flags applied on top.
func (a *app) settings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.ResolveSettings(a.cfg, cmd.Name())
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if a.logLevel != "" {
		if s.LogLevel, err = config.ParseLogLevel(a.logLevel); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("debug-output") {
		s.DebugOutput = a.debugOutput
	}
	return s, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
