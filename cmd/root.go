package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/orchestrator"
	"github.com/Norgate-AV/mint/internal/toolchains"
	"github.com/Norgate-AV/mint/internal/version"
)

// Execute runs the mint command line and exits non-zero on failure
func Execute() {
	root := newRootCmd(orchestrator.Options{})
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. base carries the process seams tests replace.
func newRootCmd(base orchestrator.Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "mint",
		Short: "Multi-language build orchestrator",
		Long: `mint builds a project with the toolchain its files call for. C and C++
sources are compiled and linked directly; other ecosystems are handed to
their own build tools. "mint configure" writes a ninja build graph that
later builds delegate to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime),
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to config file")
	root.PersistentFlags().String("lang", "", `Language key, or "auto" to detect it`)
	root.PersistentFlags().String("build-dir", "", `Build directory (default "build")`)
	root.PersistentFlags().BoolP("verbose", "v", false, "Echo commands and stream their output")
	root.PersistentFlags().Bool("dry-run", false, "Print commands without running them")

	root.AddCommand(
		newBuildCmd(base),
		newCleanCmd(base),
		newConfigureCmd(base),
		newVersionCmd(),
		newValidateYAMLCmd(),
	)

	return root
}

// projectRoot resolves the optional directory argument
func projectRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", codes.New(codes.ConfigError, "project directory not found: %s", root)
	}

	return root, nil
}

// prepare loads the configuration and an orchestrator for one invocation
func prepare(cmd *cobra.Command, args []string, base orchestrator.Options) (string, *config.Config, *orchestrator.Orchestrator, error) {
	root, err := projectRoot(args)
	if err != nil {
		return "", nil, nil, err
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd, root)
	if err != nil {
		return "", nil, nil, err
	}

	opts := base
	if opts.Stdout == nil {
		opts.Stdout = cmd.OutOrStdout()
	}

	if opts.Logger == nil {
		opts.Logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}

	if opts.Self == "" {
		if self, err := os.Executable(); err == nil {
			opts.Self = self
		}
	}

	return root, cfg, orchestrator.New(toolchains.Builtin(), opts), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printError renders a failure, followed by the tool's own diagnostics when there are any
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", red("⨯"), err)

	e := codes.From(err)
	if e.Output != "" {
		fmt.Fprint(w, e.Output)
		if e.Output[len(e.Output)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}

	if e.Path != "" && e.Kind != codes.ConfigError {
		fmt.Fprintf(w, "  at %s\n", e.Path)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mint version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mint %s (%s) %s\n", version.Version, version.Commit, version.BuildTime)
		},
	}
}

func newValidateYAMLCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "validate-yaml <in> <stamp>",
		Short:  "Validate a YAML file and touch a stamp file",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toolchains.ValidateYAML(args[0], args[1])
		},
	}
}
