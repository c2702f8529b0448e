// Package native is the direct-compile path for C and C++ projects.
//
// Sources are discovered under the project root, stale objects are compiled
// by a bounded worker pool, and the objects are linked into one artifact per
// target. Staleness is decided by modification time: an object is rebuilt
// when it is missing or older than its source. Included headers are not
// tracked.
package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// Key is the language key of the direct-compile path
const Key = "cpp"

// Extensions are the recognized native source extensions
var Extensions = []string{".c", ".cc", ".cpp", ".cxx", ".c++"}

// defaultCompilers are tried in order when no compiler is configured
var defaultCompilers = []string{"clang++", "g++"}

// Builder compiles and links a native project
type Builder struct {
	toolchain.Base
}

var (
	_ toolchain.Toolchain = (*Builder)(nil)
	_ toolchain.Cleaner   = (*Builder)(nil)
)

// New creates a native builder bound to env
func New(env toolchain.Env) *Builder {
	return &Builder{Base: toolchain.NewBase(Key, env)}
}

// Factory registers the native builder in a toolchain registry
func Factory(env toolchain.Env) (toolchain.Toolchain, error) {
	return New(env), nil
}

// Build compiles stale sources and links the artifacts.
// It fails with NoSourcesFound before looking for a compiler.
func (b *Builder) Build(ctx context.Context) ([]string, error) {
	sources, err := b.Discover()
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, codes.New(codes.NoSourcesFound, "no source files found in %s", b.Root)
	}

	cxx, err := b.Compiler()
	if err != nil {
		return nil, err
	}

	b.Logger.Debug("native build", "sources", len(sources), "compiler", cxx, "jobs", b.Jobs())

	tasks, err := b.plan(cxx, sources)
	if err != nil {
		return nil, err
	}

	compiled, compileErr := b.compile(ctx, tasks)

	// Successful units are recorded even when a sibling failed, so a retry
	// keeps their database entries
	entries := b.record(compiled)

	if compileErr != nil {
		b.persist(entries)
		return nil, compileErr
	}

	artifacts, err := b.link(ctx, cxx, tasks)
	if err != nil {
		b.persist(entries)
		return nil, err
	}

	if err := b.writeCompileCommands(sources, entries); err != nil {
		return nil, err
	}

	return artifacts, nil
}

// Clean removes objects, artifacts and the compile-commands database
func (b *Builder) Clean(ctx context.Context) error {
	return b.RemoveOutputs(
		b.ObjectDir(),
		b.BinDir(),
		b.OutputPath(cache.CompileCommandsFile),
		b.OutputPath(cache.StoreFile),
	)
}

// Discover returns the native sources of the project in lexical order
func (b *Builder) Discover() ([]string, error) {
	files, err := toolchain.FindFiles(b.Root, []string{b.BuildDir}, toolchain.MatchExtensions(Extensions...))
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources: %w", err)
	}

	return files, nil
}

// Compiler returns the configured compiler, or the first of clang++ and g++ found
func (b *Builder) Compiler() (string, error) {
	candidates := defaultCompilers
	if b.Config.Compiler != "" {
		candidates = append([]string{b.Config.Compiler}, defaultCompilers...)
	}

	for _, cxx := range candidates {
		if _, err := b.Runner.LookPath(cxx); err == nil {
			return cxx, nil
		}
	}

	return "", codes.New(codes.ToolchainUnavailable, "no C++ compiler found. Install clang++ or g++, or set the CXX env var")
}

// CompileFlags are the configured flags followed by the build-mode flags
func (b *Builder) CompileFlags() []string {
	flags := append([]string(nil), b.Config.CXXFlags...)
	if b.Config.Release {
		return append(flags, "-O3")
	}

	return append(flags, "-O0", "-g")
}

// Jobs is the worker pool size
func (b *Builder) Jobs() int {
	if b.Config.Jobs > 0 {
		return b.Config.Jobs
	}

	return runtime.NumCPU()
}

// ObjectDir holds the compiled objects
func (b *Builder) ObjectDir() string {
	return b.OutputPath("obj")
}

// BinDir holds the linked artifacts
func (b *Builder) BinDir() string {
	return b.OutputPath("bin")
}

// ObjectPath mirrors src under the object directory, keeping its full name
// so that a.c and a.cpp do not collide
func (b *Builder) ObjectPath(src string) string {
	rel, err := filepath.Rel(b.Root, src)
	if err != nil {
		rel = filepath.Base(src)
	}

	return filepath.Join(b.ObjectDir(), rel+".o")
}

// needsCompile reports whether obj is missing or older than src
func needsCompile(src, obj string) bool {
	objInfo, err := os.Stat(obj)
	if err != nil {
		return true
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return true
	}

	return srcInfo.ModTime().After(objInfo.ModTime())
}
