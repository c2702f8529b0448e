// Package graph models the build graph handed to an external executor and
// writes it in ninja manifest syntax.
//
// Contributions from several toolchains are aggregated into one Graph. The
// written file is deterministic for a given set of contributions: header,
// external rules, native rules, external edges, native edges.
package graph

import (
	"fmt"
	"log/slog"
	"strings"
)

// FileName is the build graph inside a build directory
const FileName = "build.ninja"

// Rule is a named command template
type Rule struct {
	Name        string
	Command     string
	Description string
}

// Edge produces Outputs from Inputs using Rule
type Edge struct {
	Outputs []string
	Rule    string
	Inputs  []string
}

// Contribution is what one toolchain adds to the graph
type Contribution struct {
	// Key identifies the contributor; it prefixes renamed rules
	Key   string
	Rules []Rule
	Edges []Edge
}

// Empty reports whether the contribution adds nothing
func (c Contribution) Empty() bool {
	return len(c.Rules) == 0 && len(c.Edges) == 0
}

// Header holds the global variables written at the top of the file
type Header struct {
	BuildDir string
	CXX      string
	CXXFlags []string
	LDFlags  []string
}

// Graph aggregates external contributions around the native rule set
type Graph struct {
	Header Header

	rules       []Rule
	edges       []Edge
	nativeRules []Rule
	nativeEdges []Edge

	// rule name -> rule, across native and external rules
	byName map[string]Rule
	seen   map[string]bool

	// output -> key of the contributor whose edge produces it
	producers map[string]string

	keys   []string
	logger *slog.Logger
}

// New creates a graph whose native rules and edges come from native.
// Native rule names are reserved before any external contribution is added.
func New(header Header, native Contribution, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := &Graph{
		Header: header,
		byName:    make(map[string]Rule),
		seen:      make(map[string]bool),
		producers: make(map[string]string),
		logger:    logger,
	}

	for _, rule := range native.Rules {
		if _, ok := g.byName[rule.Name]; ok {
			continue
		}
		g.byName[rule.Name] = rule
		g.nativeRules = append(g.nativeRules, rule)
	}

	for _, edge := range native.Edges {
		if g.claim(native.Key, edge) {
			g.nativeEdges = append(g.nativeEdges, edge)
		}
	}

	return g
}

// Add merges an external contribution. Identical rules and edges are kept
// once; a rule name already taken by a different rule is renamed to
// <key>_<name> and the contribution's edges follow the rename. An edge
// writing an output that an earlier edge already produces is dropped, since
// ninja rejects a manifest with two producers for one file.
func (g *Graph) Add(c Contribution) {
	if c.Empty() {
		return
	}

	renamed := make(map[string]string)

	for _, rule := range c.Rules {
		existing, ok := g.byName[rule.Name]
		if ok && existing == rule {
			continue
		}

		if ok {
			name := g.freeName(c.Key, rule.Name)
			g.logger.Debug("renamed colliding rule", "contributor", c.Key, "rule", rule.Name, "as", name)
			renamed[rule.Name] = name
			rule.Name = name
		}

		g.byName[rule.Name] = rule
		g.rules = append(g.rules, rule)
	}

	for _, edge := range c.Edges {
		if name, ok := renamed[edge.Rule]; ok {
			edge.Rule = name
		}

		if g.claim(c.Key, edge) {
			g.edges = append(g.edges, edge)
		}
	}

	g.keys = append(g.keys, c.Key)
}

// Contributors lists the keys of the external contributions, in order added
func (g *Graph) Contributors() []string {
	return append([]string(nil), g.keys...)
}

// Rules returns the external rules followed by the native rules
func (g *Graph) Rules() []Rule {
	out := make([]Rule, 0, len(g.rules)+len(g.nativeRules))
	out = append(out, g.rules...)
	return append(out, g.nativeRules...)
}

// Edges returns the external edges followed by the native edges
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges)+len(g.nativeEdges))
	out = append(out, g.edges...)
	return append(out, g.nativeEdges...)
}

// Empty reports whether there is nothing to build
func (g *Graph) Empty() bool {
	return len(g.edges) == 0 && len(g.nativeEdges) == 0
}

func (g *Graph) freeName(key, name string) string {
	candidate := key + "_" + name
	for i := 2; ; i++ {
		if _, taken := g.byName[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s_%d", key, name, i)
	}
}

// claim records edge for key unless it repeats an edge already present or
// writes an output another edge produces
func (g *Graph) claim(key string, edge Edge) bool {
	line := edgeLine(edge)
	if g.seen[line] {
		return false
	}

	for _, out := range edge.Outputs {
		if producer, ok := g.producers[out]; ok {
			g.logger.Warn("dropped edge with an output already produced",
				"contributor", key, "output", out, "producer", producer)
			return false
		}
	}

	g.seen[line] = true
	for _, out := range edge.Outputs {
		g.producers[out] = key
	}

	return true
}

func edgeLine(edge Edge) string {
	var b strings.Builder

	b.WriteString("build")
	for _, out := range edge.Outputs {
		b.WriteByte(' ')
		b.WriteString(EscapePath(out))
	}

	b.WriteString(": ")
	b.WriteString(edge.Rule)

	for _, in := range edge.Inputs {
		b.WriteByte(' ')
		b.WriteString(EscapePath(in))
	}

	return b.String()
}
