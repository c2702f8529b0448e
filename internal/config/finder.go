package config

import (
	"os"
	"path/filepath"
)

var configExtensions = []string{"yaml", "yml", "json", "toml"}

// FindLocalConfig finds the project config file by walking up directories.
// mint.<ext> wins over .mint.<ext> in the same directory.
func FindLocalConfig(dir string) string {
	for {
		for _, base := range []string{"mint", ".mint"} {
			for _, ext := range configExtensions {
				path := filepath.Join(dir, base+"."+ext)

				if info, err := os.Stat(path); err == nil && !info.IsDir() {
					return path
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
