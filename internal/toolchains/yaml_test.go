package toolchains

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

func TestYAML_Validate(t *testing.T) {
	h := newHarness(t)
	writeFiles(t, h.root, map[string]string{
		"config/app.yaml": "name: app\nports: [80, 443]\n",
		"ci.yml":          "jobs:\n  build:\n    steps: []\n",
	})

	artifacts, err := h.build(t, YAMLKey)
	require.NoError(t, err)
	assert.Empty(t, artifacts, "nothing converted by default")
	assert.Empty(t, h.tools.argvs(), "validation runs in-process")

	assert.False(t, h.cache.IsDirty(filepath.Join(h.root, "config", "app.yaml")))
}

func TestYAML_InvalidDocument(t *testing.T) {
	h := newHarness(t)
	writeFiles(t, h.root, map[string]string{
		"good.yaml": "a: 1\n",
		"bad.yaml":  "a: [1, 2\n",
	})

	_, err := h.build(t, YAMLKey)
	require.Error(t, err)

	var e *codes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, codes.CompileFailed, e.Kind)
	assert.Equal(t, filepath.Join(h.root, "bad.yaml"), e.Path)
	assert.NotEmpty(t, e.Output)
}

func TestYAML_NoSources(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(t, YAMLKey)
	assert.Equal(t, codes.NoSourcesFound, codes.KindOf(err))
}

func TestYAML_Convert(t *testing.T) {
	h := newHarness(t)
	h.cfg.Extra["convert"] = true
	writeFiles(t, h.root, map[string]string{
		"config/app.yaml": "name: app\nports: [80, 443]\n1: numeric key\n",
	})

	artifacts, err := h.build(t, YAMLKey)
	require.NoError(t, err)

	out := filepath.Join(h.cfg.BuildDir, "generated", "config", "app.json")
	assert.Equal(t, []string{out}, artifacts)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "app", doc["name"])
	assert.Equal(t, []any{float64(80), float64(443)}, doc["ports"])
	assert.Equal(t, "numeric key", doc["1"])

	// A deleted output is regenerated even though the source is clean
	require.NoError(t, os.Remove(out))
	_, err = h.build(t, YAMLKey)
	require.NoError(t, err)
	assert.FileExists(t, out)

	tc := h.toolchain(t, YAMLKey)
	require.NoError(t, tc.(toolchain.Cleaner).Clean(context.Background()))
	assert.NoFileExists(t, out)
}

func TestYAML_CustomPatterns(t *testing.T) {
	h := newHarness(t)
	h.cfg.Extra["patterns"] = []any{"*.cfg"}
	writeFiles(t, h.root, map[string]string{
		"broken.yaml": "a: [",
		"app.cfg":     "a: 1\n",
	})

	_, err := h.build(t, YAMLKey)
	require.NoError(t, err)
}

func TestYAML_Contribution(t *testing.T) {
	h := newHarness(t)
	writeFiles(t, h.root, map[string]string{"a.yaml": "a: 1\n", "sub/b.yml": "b: 2\n"})

	c, ok := toolchain.Contribution(h.toolchain(t, YAMLKey))
	require.True(t, ok)

	require.Len(t, c.Rules, 1)
	assert.Equal(t, "yaml_validate", c.Rules[0].Name)
	assert.Equal(t, "/usr/local/bin/mint validate-yaml $in $out", c.Rules[0].Command)

	require.Len(t, c.Edges, 2)
	assert.Equal(t, []string{filepath.Join(h.cfg.BuildDir, "yaml_checks", "a.yaml.ok")}, c.Edges[0].Outputs)
	assert.Equal(t, []string{filepath.Join(h.root, "a.yaml")}, c.Edges[0].Inputs)
	assert.Equal(t, []string{filepath.Join(h.cfg.BuildDir, "yaml_checks", "sub", "b.yml.ok")}, c.Edges[1].Outputs)
}

func TestValidateYAML(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"ok.yaml":    "a: 1\n---\nb: 2\n",
		"bad.yaml":   "a: b: c\n",
		"empty.yaml": "",
	})

	stamp := filepath.Join(dir, "checks", "ok.yaml.ok")
	require.NoError(t, ValidateYAML(filepath.Join(dir, "ok.yaml"), stamp))
	assert.FileExists(t, stamp)

	require.NoError(t, ValidateYAML(filepath.Join(dir, "empty.yaml"), filepath.Join(dir, "empty.ok")))

	bad := filepath.Join(dir, "checks", "bad.yaml.ok")
	err := ValidateYAML(filepath.Join(dir, "bad.yaml"), bad)
	assert.Equal(t, codes.CompileFailed, codes.KindOf(err))
	assert.NoFileExists(t, bad)
}
