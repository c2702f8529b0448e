package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHashFile(t *testing.T) {
	tempDir := t.TempDir()
	sourceFile := filepath.Join(tempDir, "main.cpp")
	writeSource(t, sourceFile, "int main() {}")

	// Hash should be consistent
	hash1, err := HashFile(sourceFile)
	require.NoError(t, err)
	assert.Len(t, hash1, 64, "blake3-256 hex digest")

	hash2, err := HashFile(sourceFile)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2, "Hash should be consistent")

	// Different content = different hash
	writeSource(t, sourceFile, "int main() { return 1; }")
	hash3, err := HashFile(sourceFile)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3)

	_, err = HashFile(filepath.Join(tempDir, "missing.cpp"))
	assert.Error(t, err)
}

func TestFingerprints_DirtyLifecycle(t *testing.T) {
	buildDir := t.TempDir()
	src := filepath.Join(t.TempDir(), "lib.cpp")
	writeSource(t, src, "int f() { return 1; }")

	fp := Load(buildDir, nil)
	assert.True(t, fp.IsDirty(src), "never-built source is dirty")
	assert.False(t, fp.Changed())

	require.NoError(t, fp.MarkClean(src))
	assert.True(t, fp.Changed())
	assert.False(t, fp.IsDirty(src), "clean right after marking")

	writeSource(t, src, "int f() { return 2; }")
	assert.True(t, fp.IsDirty(src), "dirty right after content change")

	require.NoError(t, fp.MarkClean(src))
	assert.False(t, fp.IsDirty(src))

	fp.Forget(src)
	assert.True(t, fp.IsDirty(src))
}

func TestFingerprints_RoundTrip(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build")
	srcDir := t.TempDir()

	var sources []string
	for i := 0; i < 3; i++ {
		src := filepath.Join(srcDir, fmt.Sprintf("unit%d.cpp", i))
		writeSource(t, src, fmt.Sprintf("int unit%d;", i))
		sources = append(sources, src)
	}

	fp := Load(buildDir, nil)
	for _, src := range sources {
		require.NoError(t, fp.MarkClean(src))
	}
	require.NoError(t, fp.Save())
	assert.False(t, fp.Changed(), "saving settles the cache")

	assert.FileExists(t, filepath.Join(buildDir, FileName))

	// Fresh instance, as in a new process
	reloaded := Load(buildDir, nil)
	assert.Equal(t, 3, reloaded.Len())
	for _, src := range sources {
		assert.False(t, reloaded.IsDirty(src), "unchanged source %s should not be dirty after reload", src)
	}

	// The document is a plain {path: digest} object
	data, err := os.ReadFile(reloaded.Path())
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, src := range sources {
		assert.Contains(t, doc, src)
	}
}

func TestFingerprints_RelativePathsUseAbsoluteKeys(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(dir)

	writeSource(t, filepath.Join(dir, "rel.c"), "int x;")

	fp := Load(filepath.Join(dir, "build"), nil)
	require.NoError(t, fp.MarkClean("rel.c"))
	assert.False(t, fp.IsDirty(filepath.Join(dir, "rel.c")))
}

func TestLoad_CorruptDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: "{not json"},
		{name: "wrong shape", content: `["a", "b"]`},
		{name: "wrong value type", content: `{"/src/a.cpp": 42}`},
		{name: "empty file", content: ""},
		{name: "null document", content: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildDir := t.TempDir()
			writeSource(t, filepath.Join(buildDir, FileName), tt.content)

			src := filepath.Join(t.TempDir(), "a.cpp")
			writeSource(t, src, "int a;")

			fp := Load(buildDir, nil)
			assert.Equal(t, 0, fp.Len())
			assert.True(t, fp.IsDirty(src))

			// Still usable after recovery
			require.NoError(t, fp.MarkClean(src))
			require.NoError(t, fp.Save())
			assert.Equal(t, 1, Load(buildDir, nil).Len())
		})
	}
}

func TestLoad_UnreadableDocument(t *testing.T) {
	buildDir := t.TempDir()
	// A directory where the file should be cannot be read as a document
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, FileName), 0o755))

	fp := Load(buildDir, nil)
	assert.Equal(t, 0, fp.Len())
}

func TestFingerprints_MissingSource(t *testing.T) {
	fp := Load(t.TempDir(), nil)
	missing := filepath.Join(t.TempDir(), "gone.cpp")

	assert.True(t, fp.IsDirty(missing))
	assert.Error(t, fp.MarkClean(missing))
}

func TestWriteCompileCommands_Sorted(t *testing.T) {
	buildDir := t.TempDir()
	entries := []CompileCommand{
		{Directory: "/proj", File: "/proj/z.cpp", Command: "g++ -c z.cpp"},
		{Directory: "/proj", File: "/proj/a.cpp", Command: "g++ -c a.cpp"},
	}

	path, err := WriteCompileCommands(buildDir, entries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(buildDir, CompileCommandsFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc []map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc, 2)
	assert.Equal(t, "/proj/a.cpp", doc[0]["file"])
	assert.Equal(t, "/proj/z.cpp", doc[1]["file"])
	assert.Equal(t, "/proj", doc[0]["directory"])
	assert.Equal(t, "g++ -c a.cpp", doc[0]["command"])

	// Same input, same bytes
	_, err = WriteCompileCommands(buildDir, []CompileCommand{entries[1], entries[0]})
	require.NoError(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestWriteCompileCommands_Empty(t *testing.T) {
	path, err := WriteCompileCommands(t.TempDir(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
