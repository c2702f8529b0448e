// Package cache provides the incremental-build state kept in a build directory.
//
// Two stores live side by side:
//
//  1. cache.json maps absolute source paths to content digests. A missing key
//     means the source was never built successfully and is always dirty.
//     A corrupt or unreadable document is treated as empty, forcing a full
//     rebuild instead of failing.
//  2. compdb.db (BoltDB) accumulates compile_commands.json entries across
//     invocations so sources skipped as up to date keep their entry.
//
// Neither store is locked across processes; concurrent invocations against
// one build directory race and the last writer wins.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/utils"
)

// FileName is the fingerprint document inside a build directory
const FileName = "cache.json"

// Fingerprints is the content-hash cache of one build directory.
// It is safe for concurrent use.
type Fingerprints struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]string
	changed bool
}

// Load reads the fingerprint cache of buildDir. It never fails: a missing,
// unreadable or corrupt document yields an empty cache.
func Load(buildDir string, logger *slog.Logger) *Fingerprints {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f := &Fingerprints{
		path:    filepath.Join(buildDir, FileName),
		logger:  logger,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("fingerprint cache unreadable, starting empty", "kind", codes.CacheCorrupt, "path", f.path, "error", err)
		}
		return f
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Debug("fingerprint cache corrupt, starting empty", "kind", codes.CacheCorrupt, "path", f.path, "error", err)
		return f
	}

	if entries != nil {
		f.entries = entries
	}

	return f
}

// Path is the location of the backing JSON document
func (f *Fingerprints) Path() string {
	return f.path
}

// IsDirty reports whether src changed since it was last marked clean.
// Sources never marked, or that cannot be read, are dirty.
func (f *Fingerprints) IsDirty(src string) bool {
	key := keyFor(src)

	digest, err := HashFile(key)
	if err != nil {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cached, ok := f.entries[key]
	return !ok || cached != digest
}

// MarkClean records the current digest of src
func (f *Fingerprints) MarkClean(src string) error {
	key := keyFor(src)

	digest, err := HashFile(key)
	if err != nil {
		return fmt.Errorf("failed to fingerprint %s: %w", key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[key] = digest
	f.changed = true
	return nil
}

// Forget drops src so it is dirty on the next query
func (f *Fingerprints) Forget(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.entries, keyFor(src))
	f.changed = true
}

// Changed reports whether entries were modified since the cache was loaded or saved
func (f *Fingerprints) Changed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.changed
}

// Len returns the number of recorded sources
func (f *Fingerprints) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.entries)
}

// Save persists the cache, creating the build directory if needed
func (f *Fingerprints) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(f.entries)
	if err != nil {
		return fmt.Errorf("failed to encode fingerprint cache: %w", err)
	}

	if err := utils.WriteFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("failed to write fingerprint cache: %w", err)
	}

	f.changed = false
	return nil
}

func keyFor(src string) string {
	if abs, err := filepath.Abs(src); err == nil {
		return abs
	}

	return src
}
