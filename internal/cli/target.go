package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joeycumines/termrig/internal/config"
	"github.com/joeycumines/termrig/internal/rig"
)

// targetFlags overrides the configured target for one invocation.
type targetFlags struct {
	target string
	args   []string
}

func (f *targetFlags) register(cmd *cobra.Command, argUsage string) {
	cmd.Flags().StringVar(&f.target, "target", "", "Program to launch (default: target config option)")
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, argUsage)
}

// newRig resolves settings for cmd, applies the flag overrides and creates
// an unspawned rig.
func (a *app) newRig(cmd *cobra.Command, f *targetFlags) (*rig.Rig, *config.Settings, error) {
	s, err := a.settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("target") {
		s.Target = f.target
	}
	if cmd.Flags().Changed("arg") {
		s.Args = f.args
	}
	if s.Target == "" {
		return nil, nil, fmt.Errorf("no target: set --target or the target config option")
	}

	r, err := rig.New(s.RigOptions(a.logger)...)
	if err != nil {
		return nil, nil, err
	}
	return r, s, nil
}
