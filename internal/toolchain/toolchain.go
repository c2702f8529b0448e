// Package toolchain defines the capability model shared by every build backend.
//
// A backend implements Toolchain. It may additionally implement Cleaner to
// remove its own outputs, and GraphContributor to take part in build graph
// generation. Optional capabilities are discovered with type assertions.
package toolchain

import (
	"context"
	"log/slog"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/graph"
	"github.com/Norgate-AV/mint/internal/runner"
)

// Toolchain builds one source ecosystem for one project
type Toolchain interface {
	// Key is the language key the toolchain is registered under
	Key() string

	// Build produces the toolchain's artifacts and returns their paths
	Build(ctx context.Context) ([]string, error)
}

// Cleaner removes toolchain-specific outputs
type Cleaner interface {
	Clean(ctx context.Context) error
}

// GraphContributor exports rules and edges for the build graph.
// Empty slices mean the toolchain has nothing to contribute for this project.
type GraphContributor interface {
	Rules() []graph.Rule
	Edges() []graph.Edge
}

// Contribution collects what tc adds to the build graph. ok is false when tc
// is not a GraphContributor or contributes nothing.
func Contribution(tc Toolchain) (graph.Contribution, bool) {
	gc, ok := tc.(GraphContributor)
	if !ok {
		return graph.Contribution{}, false
	}

	c := graph.Contribution{Key: tc.Key(), Rules: gc.Rules(), Edges: gc.Edges()}
	return c, !c.Empty()
}

// Env is everything a toolchain instance is bound to for one invocation
type Env struct {
	Root     string
	BuildDir string
	Config   *config.Config

	// Cache is the fingerprint cache of BuildDir, shared by every toolchain
	// of the invocation
	Cache *cache.Fingerprints

	Runner *runner.Runner
	Logger *slog.Logger

	// Self is the mint executable, used by graph rules that call back into mint
	Self string
}

// Factory constructs a toolchain bound to env
type Factory func(env Env) (Toolchain, error)
