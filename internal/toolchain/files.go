package toolchain

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// MatchFunc reports whether a file, given by its slash-separated path
// relative to the walk root, is selected
type MatchFunc func(rel string) bool

// MatchPatterns selects files matching any glob. Patterns without a slash
// match the base name, so "*.lua" selects Lua files at any depth; patterns
// with one match the relative path and may use "**", as in "src/**/*.cpp".
func MatchPatterns(patterns ...string) MatchFunc {
	return func(rel string) bool {
		for _, p := range patterns {
			target := rel
			if !strings.Contains(p, "/") {
				target = path.Base(rel)
			}

			if ok, _ := doublestar.Match(p, target); ok {
				return true
			}
		}

		return false
	}
}

// MatchExtensions selects files by extension, e.g. ".cpp"
func MatchExtensions(exts ...string) MatchFunc {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[ext] = true
	}

	return func(rel string) bool {
		return set[path.Ext(rel)]
	}
}

// FindFiles walks root and returns the absolute paths of the selected files
// in lexical order. Dot-directories and the directories in skip are pruned.
func FindFiles(root string, skip []string, match MatchFunc) ([]string, error) {
	var files []string

	err := walk(root, skip, func(p, rel string) error {
		if match(rel) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ContainsFile reports whether any file under root is selected, stopping at the first
func ContainsFile(root string, skip []string, match MatchFunc) bool {
	found := false

	_ = walk(root, skip, func(p, rel string) error {
		if match(rel) {
			found = true
			return fs.SkipAll
		}
		return nil
	})

	return found
}

func walk(root string, skip []string, fn func(p, rel string) error) error {
	root = filepath.Clean(root)

	pruned := make(map[string]bool, len(skip))
	for _, s := range skip {
		if s != "" {
			pruned[filepath.Clean(s)] = true
		}
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// Unreadable subtrees are not sources
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || pruned[p]) {
				return fs.SkipDir
			}
			return nil
		}

		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return rerr
		}

		return fn(p, filepath.ToSlash(rel))
	})
}
