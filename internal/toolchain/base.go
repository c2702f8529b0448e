package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/runner"
)

// Base carries the environment and helpers every toolchain shares.
// Toolchains embed it and get Key for free.
type Base struct {
	Env
	key string
}

// NewBase binds a toolchain key to env, filling in anything env leaves unset
func NewBase(key string, env Env) Base {
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}

	if env.Config == nil {
		env.Config = config.Default(env.Root)
	}

	if env.BuildDir == "" {
		env.BuildDir = env.Config.BuildDir
	}

	if env.Cache == nil {
		env.Cache = cache.Load(env.BuildDir, env.Logger)
	}

	if env.Runner == nil {
		env.Runner = runner.New(runner.Options{Logger: env.Logger})
	}

	env.Logger = env.Logger.With("toolchain", key)

	return Base{Env: env, key: key}
}

func (b Base) Key() string {
	return b.key
}

// IsDirty reports whether src changed since its last successful build.
// Everything is dirty in dry-run mode.
func (b Base) IsDirty(src string) bool {
	if b.Runner.DryRun() {
		return true
	}

	return b.Cache.IsDirty(src)
}

// AnyDirty reports whether any of srcs is dirty
func (b Base) AnyDirty(srcs []string) bool {
	for _, src := range srcs {
		if b.IsDirty(src) {
			return true
		}
	}

	return false
}

// UpToDate reports whether output exists and none of srcs changed
func (b Base) UpToDate(output string, srcs []string) bool {
	if _, err := os.Stat(output); err != nil {
		return false
	}

	return !b.AnyDirty(srcs)
}

// MarkClean records srcs as built. It does nothing in dry-run mode.
func (b Base) MarkClean(srcs ...string) error {
	if b.Runner.DryRun() {
		return nil
	}

	for _, src := range srcs {
		if err := b.Cache.MarkClean(src); err != nil {
			return err
		}
	}

	return nil
}

// Require finds binary in PATH or fails with ToolchainUnavailable naming it
func (b Base) Require(binary string) (string, error) {
	path, err := b.Runner.LookPath(binary)
	if err != nil {
		return "", codes.Wrap(codes.ToolchainUnavailable, err, "%s not found in PATH (required by %s)", binary, b.key)
	}

	return path, nil
}

// RequireAny returns the first of binaries found in PATH, in priority order
func (b Base) RequireAny(binaries ...string) (string, error) {
	for _, binary := range binaries {
		if path, err := b.Runner.LookPath(binary); err == nil {
			return path, nil
		}
	}

	return "", codes.New(codes.ToolchainUnavailable, "none of %s found in PATH (required by %s)", strings.Join(binaries, ", "), b.key)
}

// Run executes a command in the project root
func (b Base) Run(ctx context.Context, name string, args ...string) error {
	return b.RunIn(ctx, b.Root, name, args...)
}

// RunIn executes a command in dir. Failures become CommandFailed errors.
func (b Base) RunIn(ctx context.Context, dir, name string, args ...string) error {
	cmd := runner.Command{Dir: dir, Name: name, Args: args}
	if err := b.Runner.Run(ctx, cmd); err != nil {
		return CommandFailure(codes.CommandFailed, err, "", "%s failed", cmd.Label())
	}

	return nil
}

// OutputPath joins parts onto the build directory
func (b Base) OutputPath(parts ...string) string {
	return filepath.Join(append([]string{b.BuildDir}, parts...)...)
}

// ArtifactName is the configured name or the project directory's name
func (b Base) ArtifactName() string {
	return b.Config.ArtifactName(b.Root)
}

// Sources finds project files matching patterns, outside the build directory
func (b Base) Sources(patterns ...string) ([]string, error) {
	files, err := FindFiles(b.Root, []string{b.BuildDir}, MatchPatterns(patterns...))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", b.Root, err)
	}

	return files, nil
}

// RequireSources is Sources failing with NoSourcesFound when nothing matches
func (b Base) RequireSources(what string, patterns ...string) ([]string, error) {
	files, err := b.Sources(patterns...)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, codes.New(codes.NoSourcesFound, "no %s sources found in %s", what, b.Root)
	}

	return files, nil
}

// Exists reports whether rel exists in the project root
func (b Base) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(b.Root, rel))
	return err == nil
}

// EnsureDir creates dir and its parents
func (b Base) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	return nil
}

// RemoveOutputs deletes paths under the build directory, ignoring missing ones
func (b Base) RemoveOutputs(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}

	return nil
}

// CommandFailure turns a runner failure into a typed error of kind,
// carrying the exit code and captured output
func CommandFailure(kind codes.Kind, err error, path, format string, args ...any) *codes.Error {
	e := codes.Wrap(kind, err, format, args...)
	e.Path = path

	var cerr *runner.CommandError
	if errors.As(err, &cerr) {
		e.Output = cerr.Output
		if cerr.ExitCode > 0 {
			e.ExitCode = cerr.ExitCode
		}
	}

	return e
}
