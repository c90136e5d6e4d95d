package cli

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/joeycumines/termrig/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "path %s\n", a.path())
			printf(out, "target %s\n", s.Target)
			printf(out, "args %s\n", shellquote.Join(s.Args...))
			printf(out, "cols %d\n", s.Cols)
			printf(out, "rows %d\n", s.Rows)
			printf(out, "timeout %v\n", s.Timeout)
			printf(out, "debug-output %t\n", s.DebugOutput)
			printf(out, "log.level %s\n", strings.ToLower(s.LogLevel.String()))
			printf(out, "log.format %s\n", s.LogFormat)
			for _, kv := range s.Env {
				printf(out, "env %s\n", kv)
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "schema",
			Short: "List every known option",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printf(cmd.OutOrStdout(), "%s", config.DefaultSchema().FormatHelp())
			},
		},
		newConfigSetCmd(a),
	)
	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> [value...]",
		Short: "Set a global option in the config file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.Join(args[1:], " ")
			if !config.DefaultSchema().IsKnown("", key) {
				return fmt.Errorf("unknown option %q (see: termrig config schema)", key)
			}
			a.cfg.SetGlobalOption(key, value)
			if _, err := config.ResolveSettings(a.cfg, ""); err != nil {
				return err
			}
			return config.SetKeyInFile(a.path(), key, value)
		},
	}
	// values such as "--yolo" are arguments, not flags
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// path is the config file in use.
func (a *app) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	p, err := config.GetConfigPath()
	if err != nil {
		return ""
	}
	return p
}
