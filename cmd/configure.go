package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/mint/internal/orchestrator"
	"github.com/Norgate-AV/mint/internal/utils"
)

func newConfigureCmd(base orchestrator.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure [dir]",
		Short: "Generate a ninja build graph",
		Long: `Write build.ninja into the build directory, combining the native
compile and link steps with every toolchain that can describe its build as
graph rules. Later builds delegate to ninja while the file exists.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, orch, err := prepare(cmd, args, base)
			if err != nil {
				return err
			}

			generator, _ := cmd.Flags().GetString("generator")

			res, err := orch.Configure(cmd.Context(), orchestrator.Request{Root: root, Config: cfg, Generator: generator})
			if err != nil {
				return err
			}

			green := color.New(color.FgHiGreen).SprintFunc()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s wrote %s\n", green("✓"), res.GraphFile)
			fmt.Fprintf(out, "Run: %s\n", utils.JoinCommand("ninja", []string{"-C", cfg.BuildDir}))
			return nil
		},
	}

	cmd.Flags().StringP("generator", "G", orchestrator.DefaultGenerator, "Build graph generator")

	return cmd
}
