package toolchains

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/Norgate-AV/mint/internal/codes"
)

// packageManifest is the part of package.json the node backend reads
type packageManifest struct {
	Name    string            `json:"name"`
	Scripts map[string]string `json:"scripts"`
}

// readPackageManifest parses package.json, tolerating comments and trailing commas
func readPackageManifest(path string) (*packageManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m packageManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// packageManager picks the manager whose lockfile is present, npm otherwise
func packageManager(root string) string {
	switch {
	case fileExists(filepath.Join(root, "pnpm-lock.yaml")):
		return "pnpm"
	case fileExists(filepath.Join(root, "yarn.lock")):
		return "yarn"
	default:
		return "npm"
	}
}

func planNode(e *ecosystem) ([]step, []string, error) {
	manifestPath := filepath.Join(e.Root, "package.json")
	if !fileExists(manifestPath) {
		return nil, nil, codes.New(codes.NoSourcesFound, "package.json not found in %s", e.Root)
	}

	manifest, err := readPackageManifest(manifestPath)
	if err != nil {
		return nil, nil, codes.Wrap(codes.ConfigError, err, "invalid package.json")
	}

	script := e.Config.String("script", "build")
	if _, ok := manifest.Scripts[script]; !ok {
		return nil, nil, codes.New(codes.ConfigError, "package.json has no %q script", script)
	}

	pm := packageManager(e.Root)
	if _, err := e.Require(pm); err != nil {
		return nil, nil, err
	}

	return one(pm, "run", script), nil, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
