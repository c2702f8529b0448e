package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/mint/internal/codes"
)

func clearFlagEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CXXFLAGS", "")
	t.Setenv("LDFLAGS", "")
}

func TestLoad(t *testing.T) {
	clearFlagEnv(t)
	root := filepath.Join(string(filepath.Separator), "proj")

	tests := []struct {
		name       string
		setupViper func(v *viper.Viper)
		check      func(t *testing.T, cfg *Config)
		wantKind   codes.Kind
		wantErr    bool
	}{
		{
			name:       "load with all defaults",
			setupViper: func(v *viper.Viper) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultCXXFlags, cfg.CXXFlags)
				assert.Empty(t, cfg.LDFlags)
				assert.Equal(t, DefaultLang, cfg.Lang)
				assert.Equal(t, filepath.Join(root, DefaultBuildDir), cfg.BuildDir)
				assert.Equal(t, "proj", cfg.ArtifactName(root))
				assert.Empty(t, cfg.Extra)
			},
		},
		{
			name: "load with custom values",
			setupViper: func(v *viper.Viper) {
				v.Set("name", "app")
				v.Set("cxxflags", []any{"-std=c++17", "-Wall"})
				v.Set("ldflags", "-lm -pthread")
				v.Set("lang", "cpp")
				v.Set("build_dir", "out")
				v.Set("release", true)
				v.Set("jobs", 4)
				v.Set("compiler", "clang++")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "app", cfg.ArtifactName(root))
				assert.Equal(t, []string{"-std=c++20", "-std=c++17", "-Wall"}, cfg.CXXFlags)
				assert.Equal(t, []string{"-lm", "-pthread"}, cfg.LDFlags)
				assert.Equal(t, "cpp", cfg.Lang)
				assert.Equal(t, filepath.Join(root, "out"), cfg.BuildDir)
				assert.True(t, cfg.Release)
				assert.Equal(t, 4, cfg.Jobs)
				assert.Equal(t, "clang++", cfg.Compiler)
			},
		},
		{
			name: "absolute build dir is kept",
			setupViper: func(v *viper.Viper) {
				v.Set("build_dir", filepath.Join(string(filepath.Separator), "tmp", "b"))
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, filepath.Join(string(filepath.Separator), "tmp", "b"), cfg.BuildDir)
			},
		},
		{
			name: "unknown keys become extra",
			setupViper: func(v *viper.Viper) {
				v.Set("features", []any{"serde"})
				v.Set("entry", "src/main.lua")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"serde"}, cfg.StringSlice("features", nil))
				assert.Equal(t, "src/main.lua", cfg.String("entry", ""))
				assert.False(t, cfg.Has("name"))
			},
		},
		{
			name: "targets",
			setupViper: func(v *viper.Viper) {
				v.Set("targets", []any{
					map[string]any{"name": "server", "sources": []any{"src/server/*.cpp"}, "ldflags": "-lssl"},
					map[string]any{"name": "client", "sources": "src/client/*.cpp"},
				})
			},
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Targets, 2)
				assert.Equal(t, Target{Name: "server", Sources: []string{"src/server/*.cpp"}, LDFlags: []string{"-lssl"}}, cfg.Targets[0])
				assert.Equal(t, "client", cfg.Targets[1].Name)
				assert.Equal(t, []string{"src/client/*.cpp"}, cfg.Targets[1].Sources)
			},
		},
		{
			name:       "cxxflags with wrong type",
			setupViper: func(v *viper.Viper) { v.Set("cxxflags", map[string]any{"a": 1}) },
			wantErr:    true,
			wantKind:   codes.ConfigError,
		},
		{
			name:       "nested list in ldflags",
			setupViper: func(v *viper.Viper) { v.Set("ldflags", []any{[]any{"-lm"}}) },
			wantErr:    true,
			wantKind:   codes.ConfigError,
		},
		{
			name:       "negative jobs",
			setupViper: func(v *viper.Viper) { v.Set("jobs", -1) },
			wantErr:    true,
			wantKind:   codes.ConfigError,
		},
		{
			name:       "jobs not a number",
			setupViper: func(v *viper.Viper) { v.Set("jobs", "many") },
			wantErr:    true,
			wantKind:   codes.ConfigError,
		},
		{
			name:       "targets not a list",
			setupViper: func(v *viper.Viper) { v.Set("targets", "app") },
			wantErr:    true,
			wantKind:   codes.ConfigError,
		},
		{
			name: "duplicate target names",
			setupViper: func(v *viper.Viper) {
				v.Set("targets", []any{
					map[string]any{"name": "app"},
					map[string]any{"name": "app"},
				})
			},
			wantErr:  true,
			wantKind: codes.ConfigError,
		},
		{
			name: "invalid source pattern",
			setupViper: func(v *viper.Viper) {
				v.Set("targets", []any{map[string]any{"name": "app", "sources": []any{"src/[.cpp"}}})
			},
			wantErr:  true,
			wantKind: codes.ConfigError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setupViper(v)

			cfg, err := Load(v, root)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, codes.KindOf(err))
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EnvironmentFlagsAppend(t *testing.T) {
	t.Setenv("CXXFLAGS", "-DNDEBUG '-DNAME=\"a b\"'")
	t.Setenv("LDFLAGS", "-lz")

	v := viper.New()
	v.Set("ldflags", []any{"-lm"})

	cfg, err := Load(v, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"-std=c++20", "-DNDEBUG", `-DNAME="a b"`}, cfg.CXXFlags)
	assert.Equal(t, []string{"-lm", "-lz"}, cfg.LDFlags)
}

func TestLoad_ConfiguredFlagsKeepStandard(t *testing.T) {
	t.Setenv("CXXFLAGS", "")

	v := viper.New()
	v.Set("cxxflags", []any{"-Wall"})

	cfg, err := Load(v, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"-std=c++20", "-Wall"}, cfg.CXXFlags)
}

func TestDefault_DoesNotShareFlags(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.CXXFlags[0] = "-std=c++11"

	assert.Equal(t, "-std=c++20", DefaultCXXFlags[0])
}

func TestConfig_ExtraAccessors(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Extra = map[string]any{
		"release_profile": "true",
		"flags":           "-O2",
		"bad":             map[string]any{"x": 1},
		"nothing":         nil,
	}

	assert.True(t, cfg.Bool("release_profile", false))
	assert.True(t, cfg.Bool("missing", true))
	assert.Equal(t, []string{"-O2"}, cfg.StringSlice("flags", nil))
	assert.Equal(t, []string{"d"}, cfg.StringSlice("nothing", []string{"d"}))
	assert.Equal(t, "fallback", cfg.String("bad", "fallback"))
	assert.True(t, cfg.Has("nothing"))
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, cfg.Validate())

	cfg.BuildDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, codes.ConfigError, codes.KindOf(err))

	cfg = Default(t.TempDir())
	cfg.Targets = []Target{{Sources: []string{"*.cpp"}}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}
