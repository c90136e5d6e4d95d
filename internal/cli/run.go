package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joeycumines/termrig/internal/scenario"
)

func newRunCmd(a *app) *cobra.Command {
	var tf targetFlags

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario file against the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}

			r, _, err := a.newRig(cmd, &tf)
			if err != nil {
				return err
			}

			report, err := scenario.Execute(cmd.Context(), r, script.WithLogger(a.logger.With("rig", r.ID())))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = report.WriteTo(out)
			printf(out, "scenario %q passed: %d steps in %v\n", report.Script, len(report.Steps), report.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	tf.register(cmd, "Target argument, repeatable (default: args config option)")
	return cmd
}
