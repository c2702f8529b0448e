package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cast"

	"github.com/Norgate-AV/mint/internal/codes"
)

// Default configuration values
const (
	DefaultBuildDir = "build"
	DefaultLang     = "auto"
	DefaultRelease  = false
	DefaultVerbose  = false
	DefaultDryRun   = false
	DefaultKeepLogs = false
	DefaultJobs     = 0
)

// DefaultCXXFlags come first on every compile line, ahead of configured flags
var DefaultCXXFlags = []string{"-std=c++20"}

// Target describes one artifact of the direct-compile path
type Target struct {
	// Name of the linked artifact under <build>/bin
	Name string

	// Sources are globs, relative to the project root, selecting the objects linked into this target
	Sources []string

	// LDFlags are appended after the global link flags
	LDFlags []string
}

// Config is the resolved configuration of one invocation. It is built once
// and never mutated afterwards.
type Config struct {
	// Artifact name; empty means the project directory's name
	Name string

	// Ordered compiler and linker flags
	CXXFlags []string
	LDFlags  []string

	Targets []Target

	// Toolchain-specific keys passed through verbatim
	Extra map[string]any

	// Language key, or "auto" for detection
	Lang string

	// Absolute build directory
	BuildDir string

	// Compiler executable override (CXX)
	Compiler string

	// Optimized build
	Release bool

	// Parallel compile jobs; 0 means host parallelism
	Jobs int

	// Echo commands and stream their output
	Verbose bool

	// Print commands without executing them
	DryRun bool

	// Keep raw logs of failed commands
	KeepLogs bool

	// Config file the values were read from, if any
	File string
}

// Default returns the configuration used when nothing else is provided
func Default(root string) *Config {
	return &Config{
		CXXFlags: append([]string(nil), DefaultCXXFlags...),
		Extra:    map[string]any{},
		Lang:     DefaultLang,
		BuildDir: filepath.Join(root, DefaultBuildDir),
		Jobs:     DefaultJobs,
	}
}

func (c *Config) Validate() error {
	if c.BuildDir == "" {
		return codes.New(codes.ConfigError, "build directory must not be empty")
	}

	if c.Jobs < 0 {
		return codes.New(codes.ConfigError, "jobs must not be negative: %d", c.Jobs)
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, target := range c.Targets {
		if target.Name == "" {
			return codes.New(codes.ConfigError, "target %d has no name", i)
		}

		if seen[target.Name] {
			return codes.New(codes.ConfigError, "duplicate target name: %s", target.Name)
		}
		seen[target.Name] = true

		for _, pattern := range target.Sources {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return codes.Wrap(codes.ConfigError, err, "invalid source pattern %q in target %s", pattern, target.Name)
			}
		}
	}

	return nil
}

// ArtifactName returns the configured name or the project directory's name
func (c *Config) ArtifactName(root string) string {
	if c.Name != "" {
		return c.Name
	}

	return filepath.Base(root)
}

// String reads a pass-through string value
func (c *Config) String(key, def string) string {
	raw, ok := c.Extra[key]
	if !ok || raw == nil {
		return def
	}

	s, err := cast.ToStringE(raw)
	if err != nil {
		return def
	}

	return s
}

// Bool reads a pass-through boolean value
func (c *Config) Bool(key string, def bool) bool {
	raw, ok := c.Extra[key]
	if !ok || raw == nil {
		return def
	}

	b, err := cast.ToBoolE(raw)
	if err != nil {
		return def
	}

	return b
}

// StringSlice reads a pass-through list value; a single string becomes a one-element list
func (c *Config) StringSlice(key string, def []string) []string {
	raw, ok := c.Extra[key]
	if !ok || raw == nil {
		return def
	}

	if s, ok := raw.(string); ok {
		return []string{s}
	}

	list, err := cast.ToStringSliceE(raw)
	if err != nil {
		return def
	}

	return list
}

// Has reports whether a pass-through key is set
func (c *Config) Has(key string) bool {
	_, ok := c.Extra[key]
	return ok
}

func stringList(key string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("%s: expected a list of strings, got %T element", key, item)
			}

			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a list of strings, got %T", key, raw)
	}
}
