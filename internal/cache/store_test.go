package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandStore_PutAndLookup(t *testing.T) {
	buildDir := t.TempDir()

	store, err := OpenStore(buildDir)
	require.NoError(t, err)
	defer store.Close()

	// Initially empty
	count, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = store.Put(
		CompileCommand{Directory: "/p", File: "/p/a.cpp", Command: "g++ -c a.cpp"},
		CompileCommand{Directory: "/p", File: "/p/b.cpp", Command: "g++ -c b.cpp"},
	)
	require.NoError(t, err)

	entries, err := store.Lookup([]string{"/p/b.cpp", "/p/missing.cpp", "/p/a.cpp"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/p/b.cpp", entries[0].File)
	assert.Equal(t, "/p/a.cpp", entries[1].File)

	// Replacing an entry keeps one record per file
	require.NoError(t, store.Put(CompileCommand{Directory: "/p", File: "/p/a.cpp", Command: "g++ -O2 -c a.cpp"}))
	entries, err = store.Lookup([]string{"/p/a.cpp"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "g++ -O2 -c a.cpp", entries[0].Command)

	count, err = store.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCommandStore_PersistsAcrossOpens(t *testing.T) {
	buildDir := t.TempDir()

	store, err := OpenStore(buildDir)
	require.NoError(t, err)
	require.NoError(t, store.Put(CompileCommand{Directory: "/p", File: "/p/main.cpp", Command: "cc"}))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(buildDir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Lookup([]string{"/p/main.cpp"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCommandStore_Clear(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(CompileCommand{File: "/p/a.cpp"}))
	require.NoError(t, store.Clear())

	entries, err := store.Lookup([]string{"/p/a.cpp"})
	require.NoError(t, err)
	assert.Empty(t, entries, "Store should be empty after clear")

	// Put with nothing is a no-op
	assert.NoError(t, store.Put())
}
