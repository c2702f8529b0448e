package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/mint/internal/utils"
)

// RequiredVersion is the oldest ninja able to read the written manifest
const RequiredVersion = "1.5"

var pathEscaper = strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:", "\n", "$\n")

// EscapePath escapes a path for use in a build line
func EscapePath(path string) string {
	return pathEscaper.Replace(path)
}

// EscapeValue escapes a variable value; spaces and colons are literal there
func EscapeValue(value string) string {
	return strings.ReplaceAll(value, "$", "$$")
}

// Write renders the graph in ninja syntax
func (g *Graph) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	g.writeHeader(bw)

	for _, rule := range g.rules {
		writeRule(bw, rule)
	}

	for _, rule := range g.nativeRules {
		writeRule(bw, rule)
	}

	for _, edge := range g.edges {
		fmt.Fprintln(bw, edgeLine(edge))
	}

	for _, edge := range g.nativeEdges {
		fmt.Fprintln(bw, edgeLine(edge))
	}

	return bw.Flush()
}

// WriteFile writes the graph to <buildDir>/build.ninja and returns its path
func (g *Graph) WriteFile(buildDir string) (string, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}

	path := filepath.Join(buildDir, FileName)

	var b strings.Builder
	if err := g.Write(&b); err != nil {
		return "", err
	}

	if err := utils.WriteFileAtomic(path, []byte(b.String())); err != nil {
		return "", fmt.Errorf("failed to write build graph: %w", err)
	}

	return path, nil
}

func (g *Graph) writeHeader(w io.Writer) {
	fmt.Fprintln(w, "# Generated by mint. Do not edit; run `mint configure` instead.")
	fmt.Fprintf(w, "ninja_required_version = %s\n", RequiredVersion)

	if g.Header.BuildDir != "" {
		fmt.Fprintf(w, "builddir = %s\n", EscapeValue(g.Header.BuildDir))
	}

	cxx := ""
	if g.Header.CXX != "" {
		cxx = utils.QuoteArg(g.Header.CXX)
	}

	fmt.Fprintf(w, "cxx = %s\n", EscapeValue(cxx))
	fmt.Fprintf(w, "cxxflags = %s\n", EscapeValue(joinArgs(g.Header.CXXFlags)))
	fmt.Fprintf(w, "ldflags = %s\n", EscapeValue(joinArgs(g.Header.LDFlags)))
	fmt.Fprintln(w)
}

func writeRule(w io.Writer, rule Rule) {
	fmt.Fprintf(w, "rule %s\n", rule.Name)
	fmt.Fprintf(w, "  command = %s\n", rule.Command)

	if rule.Description != "" {
		fmt.Fprintf(w, "  description = %s\n", rule.Description)
	}

	fmt.Fprintln(w)
}

func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = utils.QuoteArg(a)
	}

	return strings.Join(quoted, " ")
}
