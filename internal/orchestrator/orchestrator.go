// Package orchestrator composes one mint invocation: it resolves the
// language, binds a toolchain to the project and runs build, configure or
// clean against it.
//
// Every error leaving this package is a *codes.Error. Fingerprint caches
// opened during an operation are flushed once when it returns, whether it
// succeeded or not.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/graph"
	"github.com/Norgate-AV/mint/internal/native"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// DefaultGenerator is the only build graph format mint writes
const DefaultGenerator = "ninja"

// Options configures how an orchestrator runs external tools
type Options struct {
	Logger *slog.Logger

	// Stdout receives echoed commands and dry-run output (default os.Stdout)
	Stdout io.Writer

	// Exec and LookPath replace process creation and executable lookup
	Exec     runner.ExecFunc
	LookPath func(file string) (string, error)

	// Self is the mint executable written into generated build graphs
	Self string
}

// Request describes one operation on one project
type Request struct {
	// Root is the project directory; empty means the working directory
	Root string

	// Lang overrides Config.Lang; "auto" or empty detects it
	Lang string

	// Config is the resolved configuration; nil means defaults
	Config *config.Config

	// CleanFirst removes previous outputs before building
	CleanFirst bool

	// Generator selects the build graph format for Configure
	Generator string
}

// Result reports what an operation did
type Result struct {
	// Toolchain is the key that ran, or "ninja" when the build was delegated
	Toolchain string

	Artifacts []string

	// GraphFile is the build graph written by Configure
	GraphFile string

	// Delegated is set when an existing build graph was handed to ninja
	Delegated bool

	Timings []runner.Timing
}

// Orchestrator dispatches operations to the toolchains of a registry
type Orchestrator struct {
	registry *toolchain.Registry
	opts     Options
}

// New creates an orchestrator over registry
func New(registry *toolchain.Registry, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	return &Orchestrator{registry: registry, opts: opts}
}

// Build runs the project's toolchain, or ninja when a build graph exists.
// Once the project is resolved a failed build still returns a Result holding
// the timings of the commands that ran.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*Result, error) {
	s, err := o.newSession(req)
	if err != nil {
		return nil, codes.From(err)
	}
	defer s.flush()

	if req.CleanFirst {
		if err := s.clean(ctx); err != nil {
			return s.failed(s.lang, err)
		}
	}

	graphFile := filepath.Join(s.cfg.BuildDir, graph.FileName)
	if _, err := os.Stat(graphFile); err == nil {
		return s.delegate(ctx)
	}

	tc, err := s.toolchain(s.lang)
	if err != nil {
		return s.failed(s.lang, err)
	}

	s.logger.Debug("building", "toolchain", s.lang, "root", s.root)

	artifacts, err := tc.Build(ctx)
	if err != nil {
		return s.failed(s.lang, err)
	}

	return &Result{Toolchain: s.lang, Artifacts: artifacts, Timings: s.runner.Timings()}, nil
}

// delegate hands the whole build to ninja
func (s *session) delegate(ctx context.Context) (*Result, error) {
	if _, err := s.runner.LookPath("ninja"); err != nil {
		return s.failed("ninja", codes.Wrap(codes.ToolchainUnavailable, err,
			"ninja not found in PATH (required by %s)", filepath.Join(s.cfg.BuildDir, graph.FileName)))
	}

	s.logger.Info("delegating to ninja", "build_dir", s.cfg.BuildDir)

	cmd := runner.Command{Dir: s.root, Name: "ninja", Args: []string{"-C", s.cfg.BuildDir}}
	if err := s.runner.Run(ctx, cmd); err != nil {
		return s.failed("ninja", toolchain.CommandFailure(codes.CommandFailed, err, "", "%s failed", cmd.Label()))
	}

	return &Result{Toolchain: "ninja", Delegated: true, Timings: s.runner.Timings()}, nil
}

// Configure writes one build graph combining every toolchain that can
// contribute to it with the native compile and link rules
func (o *Orchestrator) Configure(ctx context.Context, req Request) (*Result, error) {
	generator := req.Generator
	if generator == "" {
		generator = DefaultGenerator
	}

	if generator != DefaultGenerator {
		return nil, codes.New(codes.ConfigError, "unsupported generator %q (only %s is supported)", generator, DefaultGenerator)
	}

	s, err := o.newSession(req)
	if err != nil {
		return nil, codes.From(err)
	}
	defer s.flush()

	builder := native.New(s.env())
	nativePart, err := builder.Contribution()
	if err != nil {
		return nil, codes.From(err)
	}

	g := graph.New(builder.Header(), nativePart, s.logger)

	for _, key := range o.registry.Available() {
		if key == native.Key {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, codes.From(err)
		}

		tc, err := s.toolchain(key)
		if err != nil {
			s.logger.Debug("skipping toolchain", "toolchain", key, "error", err)
			continue
		}

		if c, ok := toolchain.Contribution(tc); ok {
			s.logger.Debug("graph contributor", "toolchain", key, "rules", len(c.Rules), "edges", len(c.Edges))
			g.Add(c)
		}
	}

	if g.Empty() {
		return nil, codes.New(codes.NoSourcesFound,
			"nothing to configure: no toolchain contributes build rules and no native sources found in %s", s.root)
	}

	path := filepath.Join(s.cfg.BuildDir, graph.FileName)
	if s.cfg.DryRun {
		fmt.Fprintf(o.opts.Stdout, "[dry-run] write %s\n", path)
		return &Result{Toolchain: DefaultGenerator, GraphFile: path}, nil
	}

	path, err = g.WriteFile(s.cfg.BuildDir)
	if err != nil {
		return nil, codes.Wrap(codes.Internal, err, "failed to write %s", graph.FileName)
	}

	s.logger.Info("wrote build graph", "path", path, "contributors", g.Contributors())

	return &Result{Toolchain: DefaultGenerator, GraphFile: path}, nil
}

// Clean removes the toolchain's outputs and the build directory
func (o *Orchestrator) Clean(ctx context.Context, req Request) (*Result, error) {
	s, err := o.newSession(req)
	if err != nil {
		return nil, codes.From(err)
	}
	defer s.flush()

	if err := s.clean(ctx); err != nil {
		return s.failed(s.lang, err)
	}

	return &Result{Toolchain: s.lang, Timings: s.runner.Timings()}, nil
}

// failed pairs err with the timings of the commands that ran before it
func (s *session) failed(key string, err error) (*Result, error) {
	return &Result{Toolchain: key, Timings: s.runner.Timings()}, codes.From(err)
}
