package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/utils"
)

// knownKeys are resolved into named Config fields; everything else lands in Extra
var knownKeys = map[string]bool{
	"name":      true,
	"cxxflags":  true,
	"ldflags":   true,
	"targets":   true,
	"lang":      true,
	"build_dir": true,
	"compiler":  true,
	"release":   true,
	"jobs":      true,
	"verbose":   true,
	"dry_run":   true,
	"keep_logs": true,
}

// flagKeys maps command flags to config keys
var flagKeys = map[string]string{
	"lang":      "lang",
	"build-dir": "build_dir",
	"compiler":  "compiler",
	"release":   "release",
	"jobs":      "jobs",
	"verbose":   "verbose",
	"dry-run":   "dry_run",
	"keep-logs": "keep_logs",
	"name":      "name",
}

// Loader handles configuration loading from various sources
type Loader struct {
	v *viper.Viper

	// ConfigFile is an explicit config path; it must exist when set
	ConfigFile string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// LoadForBuild resolves the configuration of an invocation rooted at root.
// Precedence, lowest first: defaults, .env, environment, config file, flags.
func (l *Loader) LoadForBuild(cmd *cobra.Command, root string) (*Config, error) {
	if cmd != nil && l.ConfigFile == "" {
		if f := cmd.Flags().Lookup("config"); f != nil {
			l.ConfigFile = f.Value.String()
		}
	}

	l.setupViperDefaults()

	if err := l.loadDotEnv(root); err != nil {
		return nil, err
	}

	l.bindEnv()

	if err := l.loadLocalConfig(root); err != nil {
		return nil, err
	}

	if cmd != nil {
		l.bindCommandFlags(cmd.Flags())
	}

	cfg, err := Load(l.v, root)
	if err != nil {
		return nil, err
	}

	restoreKeyCase(cfg)
	return cfg, nil
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	l.v.SetDefault("lang", DefaultLang)
	l.v.SetDefault("build_dir", DefaultBuildDir)
	l.v.SetDefault("release", DefaultRelease)
	l.v.SetDefault("verbose", DefaultVerbose)
	l.v.SetDefault("dry_run", DefaultDryRun)
	l.v.SetDefault("keep_logs", DefaultKeepLogs)
	l.v.SetDefault("jobs", DefaultJobs)
}

// loadDotEnv loads <root>/.env without overriding variables already set
func (l *Loader) loadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return codes.Wrap(codes.ConfigError, err, "invalid environment file %s", path)
	}

	return nil
}

// bindEnv maps MINT_* variables (and CXX) onto config keys
func (l *Loader) bindEnv() {
	l.v.SetEnvPrefix("MINT")
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	l.v.AutomaticEnv()

	_ = l.v.BindEnv("compiler", "MINT_COMPILER", "CXX")
}

// loadLocalConfig reads the explicit config file, or the nearest mint.* file above root
func (l *Loader) loadLocalConfig(root string) error {
	path := l.ConfigFile
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}

		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return codes.New(codes.ConfigError, "config file not found: %s", path)
			}
			return codes.Wrap(codes.ConfigError, err, "cannot read config file %s", path)
		}
	} else {
		path = FindLocalConfig(root)
	}

	if path == "" {
		return nil
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return codes.Wrap(codes.ConfigError, err, "invalid config file %s", path)
	}

	return nil
}

// bindCommandFlags binds the recognized command flags to viper
func (l *Loader) bindCommandFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = l.v.BindPFlag(key, f)
		}
	})
}

// Load builds a Config from an already populated viper instance
func Load(v *viper.Viper, root string) (*Config, error) {
	cfg := Default(root)
	cfg.File = v.ConfigFileUsed()

	var err error
	if cfg.Name, err = cast.ToStringE(v.Get("name")); err != nil {
		return nil, codes.Wrap(codes.ConfigError, err, "invalid name")
	}

	// Configured flags follow the language standard, so a project can still
	// pick another -std since the last one wins
	cxxflags, err := stringList("cxxflags", normalizeFlags(v.Get("cxxflags")))
	if err != nil {
		return nil, codes.Wrap(codes.ConfigError, err, "invalid compiler flags")
	}
	cfg.CXXFlags = append(cfg.CXXFlags, cxxflags...)

	if cfg.LDFlags, err = stringList("ldflags", normalizeFlags(v.Get("ldflags"))); err != nil {
		return nil, codes.Wrap(codes.ConfigError, err, "invalid linker flags")
	}

	// Environment flags extend whatever the project configured
	cfg.CXXFlags = append(cfg.CXXFlags, utils.SplitFlags(os.Getenv("CXXFLAGS"))...)
	cfg.LDFlags = append(cfg.LDFlags, utils.SplitFlags(os.Getenv("LDFLAGS"))...)

	if cfg.Targets, err = parseTargets(v.Get("targets")); err != nil {
		return nil, codes.Wrap(codes.ConfigError, err, "invalid targets")
	}

	cfg.Lang = v.GetString("lang")
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}

	cfg.Compiler = v.GetString("compiler")
	cfg.Release = v.GetBool("release")
	cfg.Verbose = v.GetBool("verbose")
	cfg.DryRun = v.GetBool("dry_run")
	cfg.KeepLogs = v.GetBool("keep_logs")

	if cfg.Jobs, err = cast.ToIntE(v.Get("jobs")); err != nil {
		return nil, codes.Wrap(codes.ConfigError, err, "invalid jobs")
	}

	buildDir := v.GetString("build_dir")
	if buildDir == "" {
		buildDir = DefaultBuildDir
	}
	if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(root, buildDir)
	}
	cfg.BuildDir = filepath.Clean(buildDir)

	for key, value := range v.AllSettings() {
		if !knownKeys[key] {
			cfg.Extra[key] = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// restoreKeyCase replaces the pass-through values viper folded to lower case
// with the keys and values exactly as the config file spells them
func restoreKeyCase(cfg *Config) {
	if cfg.File == "" {
		return
	}

	doc, err := readDocument(cfg.File)
	if err != nil {
		return
	}

	for key, value := range doc {
		folded := strings.ToLower(key)
		if knownKeys[folded] {
			continue
		}

		if _, ok := cfg.Extra[folded]; ok {
			delete(cfg.Extra, folded)
			cfg.Extra[key] = value
		}
	}
}

// readDocument decodes a config file without folding key case
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}

	return doc, err
}

// normalizeFlags lets a single flag string stand in for a list
func normalizeFlags(raw any) any {
	if s, ok := raw.(string); ok {
		return utils.SplitFlags(s)
	}

	return raw
}

func parseTargets(raw any) ([]Target, error) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of targets, got %T", raw)
	}

	targets := make([]Target, 0, len(list))
	for i, item := range list {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("target %d: expected a mapping, got %T", i, item)
		}

		name, err := cast.ToStringE(m["name"])
		if err != nil {
			return nil, fmt.Errorf("target %d: invalid name: %w", i, err)
		}

		sources, err := stringList("sources", normalizeFlags(m["sources"]))
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}

		ldflags, err := stringList("ldflags", normalizeFlags(m["ldflags"]))
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}

		targets = append(targets, Target{Name: name, Sources: sources, LDFlags: ldflags})
	}

	return targets, nil
}
