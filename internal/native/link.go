package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// artifact is one link step
type artifact struct {
	path    string
	objects []string
	ldflags []string

	// any object was compiled in this invocation
	fresh bool
}

// artifacts groups objects into link steps. Without configured targets the
// whole project links into one artifact named after the project.
func (b *Builder) artifacts(tasks []*task) []artifact {
	ldflags := b.Config.LDFlags

	if len(b.Config.Targets) == 0 {
		a := artifact{path: filepath.Join(b.BinDir(), b.ArtifactName()), ldflags: ldflags}
		for _, t := range tasks {
			a.objects = append(a.objects, t.obj)
			a.fresh = a.fresh || t.compile
		}
		return []artifact{a}
	}

	out := make([]artifact, 0, len(b.Config.Targets))
	for _, target := range b.Config.Targets {
		a := artifact{
			path:    filepath.Join(b.BinDir(), target.Name),
			ldflags: append(append([]string(nil), ldflags...), target.LDFlags...),
		}

		match := targetMatcher(target)
		for _, t := range tasks {
			rel, err := filepath.Rel(b.Root, t.src)
			if err != nil || !match(filepath.ToSlash(rel)) {
				continue
			}
			a.objects = append(a.objects, t.obj)
			a.fresh = a.fresh || t.compile
		}

		out = append(out, a)
	}

	return out
}

func targetMatcher(target config.Target) toolchain.MatchFunc {
	if len(target.Sources) == 0 {
		return func(string) bool { return true }
	}

	return toolchain.MatchPatterns(target.Sources...)
}

// link produces every artifact. An artifact is left alone when none of its
// objects was compiled and it is not older than any of them.
func (b *Builder) link(ctx context.Context, cxx string, tasks []*task) ([]string, error) {
	dryRun := b.Runner.DryRun()

	if !dryRun {
		if err := b.EnsureDir(b.BinDir()); err != nil {
			return nil, err
		}
	}

	var paths []string
	for _, a := range b.artifacts(tasks) {
		if len(a.objects) == 0 {
			return nil, codes.New(codes.NoSourcesFound, "no sources match target %s", filepath.Base(a.path))
		}

		paths = append(paths, a.path)

		if !dryRun && !a.fresh && newerThanAll(a.path, a.objects) {
			b.Logger.Debug("artifact up to date", "artifact", a.path)
			continue
		}

		args := make([]string, 0, len(a.objects)+len(a.ldflags)+2)
		args = append(args, "-o", a.path)
		args = append(args, a.objects...)
		args = append(args, a.ldflags...)

		cmd := runner.Command{Dir: b.Root, Name: cxx, Args: args}
		if err := b.Runner.Run(ctx, cmd); err != nil {
			return nil, toolchain.CommandFailure(codes.LinkFailed, err, a.path, "failed to link %s", filepath.Base(a.path))
		}
	}

	return paths, nil
}

func newerThanAll(path string, objects []string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	for _, obj := range objects {
		objInfo, err := os.Stat(obj)
		if err != nil || objInfo.ModTime().After(info.ModTime()) {
			return false
		}
	}

	return true
}

// persist stores entries in the compile-command store, best effort
func (b *Builder) persist(entries []cache.CompileCommand) {
	if b.Runner.DryRun() || len(entries) == 0 {
		return
	}

	store, err := cache.OpenStore(b.BuildDir)
	if err != nil {
		b.Logger.Warn("compile command store unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Put(entries...); err != nil {
		b.Logger.Warn("failed to record compile commands", "error", err)
	}
}

// writeCompileCommands merges this invocation's entries with those recorded
// by earlier invocations and writes compile_commands.json for every current
// source ever compiled. Without the store only this invocation's entries are written.
func (b *Builder) writeCompileCommands(sources []string, entries []cache.CompileCommand) error {
	if b.Runner.DryRun() {
		return nil
	}

	merged := entries

	store, err := cache.OpenStore(b.BuildDir)
	if err != nil {
		b.Logger.Warn("compile command store unavailable, writing this build's entries only", "error", err)
	} else {
		defer store.Close()

		if err := store.Put(entries...); err != nil {
			b.Logger.Warn("failed to record compile commands", "error", err)
		}

		if all, err := store.Lookup(sources); err == nil {
			merged = all
		} else {
			b.Logger.Warn("failed to read compile commands", "error", err)
		}
	}

	if _, err := cache.WriteCompileCommands(b.BuildDir, merged); err != nil {
		return fmt.Errorf("failed to write compile commands: %w", err)
	}

	return nil
}
