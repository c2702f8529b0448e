package cache

// CompileCommand is one entry of compile_commands.json
type CompileCommand struct {
	// Directory is the working directory the command ran in
	Directory string `json:"directory"`

	// File is the absolute path of the compiled source
	File string `json:"file"`

	// Command is the full compiler invocation
	Command string `json:"command"`
}
