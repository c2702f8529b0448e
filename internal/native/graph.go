package native

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/mint/internal/graph"
	"github.com/Norgate-AV/mint/internal/utils"
)

// fallbackCompiler is written into a graph when no compiler is installed yet
const fallbackCompiler = "c++"

// Header returns the global graph variables for this project
func (b *Builder) Header() graph.Header {
	cxx, err := b.Compiler()
	if err != nil {
		b.Logger.Debug("no compiler found for build graph", "fallback", fallbackCompiler)
		cxx = fallbackCompiler
	}

	return graph.Header{
		BuildDir: b.BuildDir,
		CXX:      cxx,
		CXXFlags: b.CompileFlags(),
		LDFlags:  b.Config.LDFlags,
	}
}

// Contribution returns the native compile and link rules with one edge per
// source and per artifact. It is empty when the project has no native sources.
func (b *Builder) Contribution() (graph.Contribution, error) {
	sources, err := b.Discover()
	if err != nil {
		return graph.Contribution{}, err
	}

	c := graph.Contribution{Key: Key}
	if len(sources) == 0 {
		return c, nil
	}

	c.Rules = []graph.Rule{
		{
			Name:        "cxx",
			Command:     fmt.Sprintf("$cxx -c $cxxflags -I %s -o $out $in", graph.EscapeValue(utils.QuoteArg(b.Root))),
			Description: "CXX $out",
		},
		{
			Name:        "link",
			Command:     "$cxx -o $out $in $ldflags",
			Description: "LINK $out",
		},
	}

	tasks := make([]*task, 0, len(sources))
	for _, src := range sources {
		obj := b.ObjectPath(src)
		tasks = append(tasks, &task{src: src, obj: obj})
		c.Edges = append(c.Edges, graph.Edge{Outputs: []string{obj}, Rule: "cxx", Inputs: []string{src}})
	}

	for _, a := range b.artifacts(tasks) {
		if len(a.objects) == 0 {
			continue
		}

		edge := graph.Edge{Outputs: []string{a.path}, Rule: "link", Inputs: a.objects}
		if len(a.ldflags) > len(b.Config.LDFlags) {
			// Per-target flags have no variable of their own, so the target gets its own rule
			edge.Rule = "link_" + sanitizeRuleName(a.path)
			c.Rules = append(c.Rules, graph.Rule{
				Name:        edge.Rule,
				Command:     "$cxx -o $out $in " + graph.EscapeValue(joinFlags(a.ldflags)),
				Description: "LINK $out",
			})
		}

		c.Edges = append(c.Edges, edge)
	}

	return c, nil
}

func sanitizeRuleName(path string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, filepath.Base(path))
}

func joinFlags(flags []string) string {
	quoted := make([]string, len(flags))
	for i, f := range flags {
		quoted[i] = utils.QuoteArg(f)
	}

	return strings.Join(quoted, " ")
}
