package toolchains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/graph"
	"github.com/Norgate-AV/mint/internal/toolchain"
	"github.com/Norgate-AV/mint/internal/utils"
)

// YAMLKey is the registry key of the YAML backend
const YAMLKey = "yaml"

const (
	yamlChecksDir = "yaml_checks"
	yamlOutDir    = "generated"
)

var defaultYAMLPatterns = []string{"*.yaml", "*.yml"}

// yamlFiles validates YAML documents and optionally converts them to JSON.
// Each file is its own unit.
type yamlFiles struct {
	toolchain.Base
}

var (
	_ toolchain.Toolchain        = (*yamlFiles)(nil)
	_ toolchain.Cleaner          = (*yamlFiles)(nil)
	_ toolchain.GraphContributor = (*yamlFiles)(nil)
)

func newYAML(env toolchain.Env) (toolchain.Toolchain, error) {
	return &yamlFiles{Base: toolchain.NewBase(YAMLKey, env)}, nil
}

func (y *yamlFiles) patterns() []string {
	return y.Config.StringSlice("patterns", defaultYAMLPatterns)
}

func (y *yamlFiles) outDir() string {
	return y.OutputPath(y.Config.String("out_dir", yamlOutDir))
}

func (y *yamlFiles) rel(src string) string {
	rel, err := filepath.Rel(y.Root, src)
	if err != nil {
		return filepath.Base(src)
	}

	return rel
}

// jsonPath is where the converted form of src is written
func (y *yamlFiles) jsonPath(src string) string {
	rel := y.rel(src)
	return filepath.Join(y.outDir(), strings.TrimSuffix(rel, filepath.Ext(rel))+".json")
}

func (y *yamlFiles) Build(ctx context.Context) ([]string, error) {
	sources, err := y.RequireSources("YAML", y.patterns()...)
	if err != nil {
		return nil, err
	}

	convert := y.Config.Bool("convert", false)

	var artifacts []string
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := y.jsonPath(src)
		if convert {
			artifacts = append(artifacts, out)
		}

		if !y.IsDirty(src) && (!convert || fileExists(out)) {
			continue
		}

		doc, err := readYAML(src)
		if err != nil {
			e := codes.Wrap(codes.CompileFailed, err, "invalid YAML in %s", y.rel(src))
			e.Path = src
			e.Output = err.Error()
			return nil, e
		}

		if convert && !y.Runner.DryRun() {
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return nil, codes.Wrap(codes.CompileFailed, err, "cannot convert %s to JSON", y.rel(src))
			}

			if err := utils.WriteFileAtomic(out, append(data, '\n')); err != nil {
				return nil, err
			}
		}

		if err := y.MarkClean(src); err != nil {
			return nil, err
		}

		y.Logger.Debug("validated", "file", y.rel(src))
	}

	y.Logger.Info("validated YAML", "files", len(sources), "converted", len(artifacts))
	return artifacts, nil
}

func (y *yamlFiles) Clean(ctx context.Context) error {
	return y.RemoveOutputs(y.outDir(), y.OutputPath(yamlChecksDir))
}

func (y *yamlFiles) command() string {
	self := y.Self
	if self == "" {
		self = "mint"
	}

	return graph.EscapeValue(utils.QuoteArg(self)) + " validate-yaml $in $out"
}

func (y *yamlFiles) Rules() []graph.Rule {
	if len(y.Edges()) == 0 {
		return nil
	}

	return []graph.Rule{{Name: "yaml_validate", Command: y.command(), Description: "YAML $in"}}
}

// Edges stamp each document once it validates
func (y *yamlFiles) Edges() []graph.Edge {
	sources, err := y.Sources(y.patterns()...)
	if err != nil {
		return nil
	}

	edges := make([]graph.Edge, 0, len(sources))
	for _, src := range sources {
		edges = append(edges, graph.Edge{
			Outputs: []string{y.OutputPath(yamlChecksDir, y.rel(src)+".ok")},
			Rule:    "yaml_validate",
			Inputs:  []string{src},
		})
	}

	return edges
}

// readYAML parses every document in path. A single document is returned
// as-is; a stream becomes a list.
func readYAML(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)

	var docs []any
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		docs = append(docs, normalizeYAML(doc))
	}

	if len(docs) == 1 {
		return docs[0], nil
	}

	return docs, nil
}

// normalizeYAML turns map[any]any nodes into JSON-encodable map[string]any
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return m
	case []any:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	default:
		return v
	}
}

// ValidateYAML checks in and touches stamp on success.
// It backs the validate-yaml command used by generated build graphs.
func ValidateYAML(in, stamp string) error {
	if _, err := readYAML(in); err != nil {
		return codes.Wrap(codes.CompileFailed, err, "invalid YAML in %s", in)
	}

	return utils.WriteFileAtomic(stamp, nil)
}
