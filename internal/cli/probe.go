package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joeycumines/termrig/internal/scenario"
)

func newProbeCmd(a *app) *cobra.Command {
	var (
		tf         targetFlags
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure shell mode toggle performance of the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, s, err := a.newRig(cmd, &tf)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("iterations") {
				iterations = s.Iterations
			}
			if iterations < 1 {
				return fmt.Errorf("iterations must be at least 1, got %d", iterations)
			}

			out := cmd.OutOrStdout()
			printf(out, "--- Measuring shell mode toggle performance over %d iterations ---\n", iterations)

			script := scenario.ShellModeProbe(iterations).WithLogger(a.logger.With("rig", r.ID()))
			report, err := scenario.Execute(cmd.Context(), r, script)
			if err != nil {
				return err
			}

			_, _ = report.WriteTo(out)
			printf(out, "--- Performance test completed ---\n")
			return nil
		},
	}

	tf.register(cmd, "Target argument, repeatable (default: [probe] args config option, --yolo)")
	cmd.Flags().IntVar(&iterations, "iterations", 3, "Shell mode toggles to measure (default: [probe] iterations config option)")
	return cmd
}
