package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/mint/internal/orchestrator"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/utils"
)

func newBuildCmd(base orchestrator.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Build the project",
		Long: `Build the project in dir (default: the current directory). When the
build directory holds a build.ninja, the whole build is handed to ninja.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, base)
		},
	}

	cmd.Flags().BoolP("release", "r", false, "Optimized build")
	cmd.Flags().Bool("clean", false, "Remove previous outputs first")
	cmd.Flags().Bool("keep-logs", false, "Keep raw logs of failed commands in the build directory")
	cmd.Flags().String("log", "", "Write command timings to this JSON file")
	cmd.Flags().IntP("jobs", "j", 0, "Parallel compile jobs (default: number of CPUs)")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, base orchestrator.Options) error {
	root, cfg, orch, err := prepare(cmd, args, base)
	if err != nil {
		return err
	}

	clean, _ := cmd.Flags().GetBool("clean")

	res, err := orch.Build(cmd.Context(), orchestrator.Request{Root: root, Config: cfg, CleanFirst: clean})

	// A failed build still logs the commands that ran before it
	if logPath, _ := cmd.Flags().GetString("log"); logPath != "" && res != nil {
		if logErr := writeTimingLog(logPath, res.Timings); logErr != nil && err == nil {
			return logErr
		}
	}

	if err != nil {
		return err
	}

	printBuildSummary(cmd.OutOrStdout(), root, res)
	return nil
}

// timingEntry is one record of the --log document
type timingEntry struct {
	Cmd string  `json:"cmd"`
	Sec float64 `json:"sec"`
}

func writeTimingLog(path string, timings []runner.Timing) error {
	entries := make([]timingEntry, 0, len(timings))
	for _, t := range timings {
		entries = append(entries, timingEntry{Cmd: t.Label, Sec: t.Duration.Seconds()})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode timing log: %w", err)
	}

	if err := utils.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write timing log: %w", err)
	}

	return nil
}

func printBuildSummary(w io.Writer, root string, res *orchestrator.Result) {
	green := color.New(color.FgHiGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if res.Delegated {
		fmt.Fprintf(w, "%s built with %s\n", green("✓"), cyan("ninja"))
		return
	}

	fmt.Fprintf(w, "%s built with %s\n", green("✓"), cyan(res.Toolchain))

	for _, artifact := range res.Artifacts {
		if rel, err := filepath.Rel(root, artifact); err == nil {
			artifact = rel
		}
		fmt.Fprintf(w, "  %s\n", artifact)
	}

	if len(res.Timings) == 0 {
		return
	}

	var total float64
	for _, t := range res.Timings {
		total += t.Duration.Seconds()
		fmt.Fprintf(w, "  %-40s %7.2fs\n", t.Label, t.Duration.Seconds())
	}
	fmt.Fprintf(w, "  %-40s %7.2fs\n", "total", total)
}
