package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/mint/internal/orchestrator"
)

func newCleanCmd(base orchestrator.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove build outputs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, orch, err := prepare(cmd, args, base)
			if err != nil {
				return err
			}

			if _, err := orch.Clean(cmd.Context(), orchestrator.Request{Root: root, Config: cfg}); err != nil {
				return err
			}

			green := color.New(color.FgHiGreen).SprintFunc()
			fmt.Fprintf(cmd.OutOrStdout(), "%s cleaned %s\n", green("✓"), cfg.BuildDir)
			return nil
		},
	}
}
