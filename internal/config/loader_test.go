package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/mint/internal/codes"
)

// unsetEnv clears a variable for the test and restores it afterwards
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func isolateEnv(t *testing.T) {
	t.Helper()
	unsetEnv(t, "CXX", "CXXFLAGS", "LDFLAGS", "MINT_COMPILER", "MINT_LANG", "MINT_JOBS", "MINT_BUILD_DIR", "MINT_RELEASE")
}

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "build"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("lang", DefaultLang, "")
	cmd.Flags().String("build-dir", DefaultBuildDir, "")
	cmd.Flags().Bool("release", false, "")
	cmd.Flags().Int("jobs", 0, "")
	cmd.Flags().Bool("dry-run", false, "")
	return cmd
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, DefaultLang, loader.v.GetString("lang"))
	assert.Equal(t, DefaultBuildDir, loader.v.GetString("build_dir"))
	assert.False(t, loader.v.GetBool("release"))
	assert.Equal(t, 0, loader.v.GetInt("jobs"))
}

func TestLoader_LoadForBuild_NoConfig(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()

	cfg, err := NewLoader().LoadForBuild(nil, root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "build"), cfg.BuildDir)
	assert.Equal(t, DefaultCXXFlags, cfg.CXXFlags)
	assert.Equal(t, "auto", cfg.Lang)
	assert.Empty(t, cfg.File)
}

func TestLoader_LoadForBuild_LocalConfig(t *testing.T) {
	isolateEnv(t)

	t.Run("loads yaml config", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mint.yaml"), `name: demo
cxxflags: ["-std=c++17", "-Wall"]
ldflags: "-lm"
build_dir: out
features: [serde]
`)

		cfg, err := NewLoader().LoadForBuild(nil, root)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "mint.yaml"), cfg.File)
		assert.Equal(t, "demo", cfg.Name)
		assert.Equal(t, []string{"-std=c++20", "-std=c++17", "-Wall"}, cfg.CXXFlags)
		assert.Equal(t, []string{"-lm"}, cfg.LDFlags)
		assert.Equal(t, filepath.Join(root, "out"), cfg.BuildDir)
		assert.Equal(t, []string{"serde"}, cfg.StringSlice("features", nil))
	})

	t.Run("loads json config", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mint.json"), `{"release": true, "jobs": 2}`)

		cfg, err := NewLoader().LoadForBuild(nil, root)
		require.NoError(t, err)
		assert.True(t, cfg.Release)
		assert.Equal(t, 2, cfg.Jobs)
	})

	t.Run("loads toml config from a parent directory", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".mint.toml"), "lang = \"cpp\"\n")
		sub := filepath.Join(root, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))

		cfg, err := NewLoader().LoadForBuild(nil, sub)
		require.NoError(t, err)
		assert.Equal(t, "cpp", cfg.Lang)
		assert.Equal(t, filepath.Join(sub, "build"), cfg.BuildDir)
	})

	t.Run("pass-through keys keep their spelling", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mint.yaml"), `Name: demo
mainClass: com.example.Main
node:
  buildScript: dist
`)

		cfg, err := NewLoader().LoadForBuild(nil, root)
		require.NoError(t, err)
		assert.Equal(t, "demo", cfg.Name, "recognized keys are case-insensitive")
		assert.Equal(t, "com.example.Main", cfg.String("mainClass", ""))
		assert.False(t, cfg.Has("mainclass"))
		assert.Equal(t, map[string]any{"buildScript": "dist"}, cfg.Extra["node"])
	})

	t.Run("pass-through keys keep their spelling in toml", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mint.toml"), "mainClass = \"App\"\n")

		cfg, err := NewLoader().LoadForBuild(nil, root)
		require.NoError(t, err)
		assert.Equal(t, "App", cfg.String("mainClass", ""))
	})

	t.Run("invalid config file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mint.yaml"), "name: [unclosed\n")

		_, err := NewLoader().LoadForBuild(nil, root)
		require.Error(t, err)
		assert.Equal(t, codes.ConfigError, codes.KindOf(err))
	})
}

func TestLoader_ExplicitConfigFile(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()

	t.Run("missing file fails", func(t *testing.T) {
		loader := NewLoader()
		loader.ConfigFile = "nope.yaml"

		_, err := loader.LoadForBuild(nil, root)
		require.Error(t, err)
		assert.Equal(t, codes.ConfigError, codes.KindOf(err))
		assert.Contains(t, err.Error(), "nope.yaml")
	})

	t.Run("relative to root via flag", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "configs", "ci.yaml"), "name: ci\n")
		writeFile(t, filepath.Join(root, "mint.yaml"), "name: local\n")

		cmd := newBuildCommand()
		require.NoError(t, cmd.Flags().Set("config", filepath.Join("configs", "ci.yaml")))

		cfg, err := NewLoader().LoadForBuild(cmd, root)
		require.NoError(t, err)
		assert.Equal(t, "ci", cfg.Name)
	})
}

func TestLoader_Precedence(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mint.yaml"), "lang: cpp\njobs: 2\nbuild_dir: from-file\n")

	t.Run("config file beats defaults", func(t *testing.T) {
		cfg, err := NewLoader().LoadForBuild(newBuildCommand(), root)
		require.NoError(t, err)
		assert.Equal(t, "cpp", cfg.Lang)
		assert.Equal(t, 2, cfg.Jobs)
		assert.Equal(t, filepath.Join(root, "from-file"), cfg.BuildDir)
	})

	t.Run("environment beats config file", func(t *testing.T) {
		t.Setenv("MINT_JOBS", "6")

		cfg, err := NewLoader().LoadForBuild(newBuildCommand(), root)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Jobs)
	})

	t.Run("flags beat everything", func(t *testing.T) {
		t.Setenv("MINT_JOBS", "6")

		cmd := newBuildCommand()
		require.NoError(t, cmd.Flags().Set("jobs", "8"))
		require.NoError(t, cmd.Flags().Set("build-dir", "from-flag"))
		require.NoError(t, cmd.Flags().Set("release", "true"))

		cfg, err := NewLoader().LoadForBuild(cmd, root)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Jobs)
		assert.Equal(t, filepath.Join(root, "from-flag"), cfg.BuildDir)
		assert.True(t, cfg.Release)
		assert.Equal(t, "cpp", cfg.Lang, "unchanged flags do not override the file")
	})
}

func TestLoader_CompilerFromEnvironment(t *testing.T) {
	isolateEnv(t)

	t.Setenv("CXX", "clang++")
	cfg, err := NewLoader().LoadForBuild(nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "clang++", cfg.Compiler)

	t.Setenv("MINT_COMPILER", "g++-13")
	cfg, err = NewLoader().LoadForBuild(nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "g++-13", cfg.Compiler, "MINT_COMPILER wins over CXX")
}

func TestLoader_DotEnv(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "MINT_LANG=rust\nCXXFLAGS=-DFROM_DOTENV\n")

	cfg, err := NewLoader().LoadForBuild(nil, root)
	require.NoError(t, err)
	assert.Equal(t, "rust", cfg.Lang)
	assert.Contains(t, cfg.CXXFlags, "-DFROM_DOTENV")
}

func TestLoader_DotEnvDoesNotOverride(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MINT_LANG", "go")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "MINT_LANG=rust\n")

	cfg, err := NewLoader().LoadForBuild(nil, root)
	require.NoError(t, err)
	assert.Equal(t, "go", cfg.Lang)
}
