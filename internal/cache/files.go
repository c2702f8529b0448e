package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Norgate-AV/mint/internal/utils"
)

// CompileCommandsFile is the compile-commands database inside a build directory
const CompileCommandsFile = "compile_commands.json"

// WriteCompileCommands writes entries sorted by file as a JSON array
func WriteCompileCommands(buildDir string, entries []CompileCommand) (string, error) {
	sorted := make([]CompileCommand, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].File < sorted[j].File
	})

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode compile commands: %w", err)
	}

	path := filepath.Join(buildDir, CompileCommandsFile)
	if err := utils.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("failed to write compile commands: %w", err)
	}

	return path, nil
}
