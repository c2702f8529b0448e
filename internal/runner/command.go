package runner

import (
	"fmt"
	"time"

	"github.com/Norgate-AV/mint/internal/utils"
)

// Command is one external process invocation
type Command struct {
	// Dir is the working directory; empty means the current directory
	Dir  string
	Name string
	Args []string
}

// String renders the command line the way it is echoed and recorded
func (c Command) String() string {
	return utils.JoinCommand(c.Name, c.Args)
}

// Label is the short form used in timing summaries
func (c Command) Label() string {
	return utils.CommandLabel(c.Name, c.Args)
}

// Argv returns the full argument vector including the executable
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Timing records how long a successful command took
type Timing struct {
	Label    string
	Duration time.Duration
}

// CommandError describes an external command that did not succeed
type CommandError struct {
	Command  Command
	ExitCode int
	Output   string

	// LogFile is set when raw logs were kept for this failure
	LogFile string

	Err error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, e.Command)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitStatus is an error carrying a process exit code, for Commander fakes
type ExitStatus int

func (s ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}

// ExitCode mirrors (*exec.ExitError).ExitCode
func (s ExitStatus) ExitCode() int {
	return int(s)
}

// CommanderFunc adapts a function to the Commander interface
type CommanderFunc func() error

func (f CommanderFunc) Run() error {
	return f()
}
