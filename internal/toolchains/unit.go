package toolchains

import (
	"context"
	"path/filepath"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// unitRecipe describes a direct-compile backend that builds the project as one unit
type unitRecipe struct {
	// what names the sources in errors, e.g. "Kotlin"
	what string

	// patterns select the tracked sources; preferDir, if set and non-empty, is searched first
	patterns  []string
	preferDir string

	// entry is the default entry file relative to the root. Without one the
	// entry key is optional and the first source is used.
	entry string

	// suffix is appended to the artifact name, e.g. ".jar"
	suffix string

	compile func(ctx context.Context, u *unit) error
}

// unit is a coarse-grained direct-compile backend. A change to any tracked
// source rebuilds the whole unit.
type unit struct {
	toolchain.Base
	recipe unitRecipe

	// resolved per build
	sources []string
	entry   string
	output  string
}

var (
	_ toolchain.Toolchain = (*unit)(nil)
	_ toolchain.Cleaner   = (*unit)(nil)
)

func unitFactory(key string, recipe unitRecipe) toolchain.Factory {
	return func(env toolchain.Env) (toolchain.Toolchain, error) {
		return newUnit(key, env, recipe), nil
	}
}

func newUnit(key string, env toolchain.Env, recipe unitRecipe) *unit {
	u := &unit{Base: toolchain.NewBase(key, env), recipe: recipe}
	u.output = u.OutputPath("bin", u.ArtifactName()+recipe.suffix)

	if entry := u.Config.String("entry", recipe.entry); entry != "" {
		u.entry = u.resolve(entry)
	}

	return u
}

func (u *unit) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(u.Root, rel)
}

// Output is the artifact path
func (u *unit) Output() string {
	return u.output
}

func (u *unit) discover() ([]string, error) {
	if u.recipe.preferDir != "" {
		dir := filepath.Join(u.Root, u.recipe.preferDir)
		files, err := toolchain.FindFiles(dir, []string{u.BuildDir}, toolchain.MatchPatterns(u.recipe.patterns...))
		if err == nil && len(files) > 0 {
			return files, nil
		}
	}

	return u.Sources(u.recipe.patterns...)
}

func (u *unit) Build(ctx context.Context) ([]string, error) {
	if u.entry != "" && !fileExists(u.entry) {
		return nil, codes.New(codes.NoSourcesFound, "%s entry %s not found", u.recipe.what, u.entry)
	}

	sources, err := u.discover()
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, codes.New(codes.NoSourcesFound, "no %s sources found in %s", u.recipe.what, u.Root)
	}
	u.sources = sources

	if u.UpToDate(u.output, sources) {
		u.Logger.Info("up to date, skipping compile", "artifact", u.output)
		return []string{u.output}, nil
	}

	if !u.Runner.DryRun() {
		if err := u.EnsureDir(filepath.Dir(u.output)); err != nil {
			return nil, err
		}
	}

	if err := u.recipe.compile(ctx, u); err != nil {
		return nil, err
	}

	if err := u.MarkClean(sources...); err != nil {
		return nil, err
	}

	u.Logger.Info("built", "artifact", u.output)
	return []string{u.output}, nil
}

// Clean removes the artifact and the unit's intermediate directory
func (u *unit) Clean(ctx context.Context) error {
	return u.RemoveOutputs(u.output, u.classesDir())
}

// classesDir holds intermediate outputs such as JVM class files
func (u *unit) classesDir() string {
	return u.OutputPath("obj", u.Key())
}

// main is the entry file, or the first source when the unit has no entry
func (u *unit) main() string {
	if u.entry != "" || len(u.sources) == 0 {
		return u.entry
	}

	return u.sources[0]
}

// compileWith runs a compiler invocation; failures are CompileFailed
func (u *unit) compileWith(ctx context.Context, name string, args ...string) error {
	cmd := runner.Command{Dir: u.Root, Name: name, Args: args}
	if err := u.Runner.Run(ctx, cmd); err != nil {
		return toolchain.CommandFailure(codes.CompileFailed, err, u.main(), "%s build failed", u.recipe.what)
	}

	return nil
}
