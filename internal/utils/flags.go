package utils

import (
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/caarlos0/go-shellwords"
)

// SplitFlags splits a flag string such as the value of CXXFLAGS into
// individual arguments, honouring shell quoting. A string the shell could not
// parse, such as one with an unterminated quote, is split on whitespace.
func SplitFlags(s string) []string {
	flags, err := shellwords.Parse(s)
	if err != nil {
		flags = strings.Fields(s)
	}

	if flags == nil {
		return []string{}
	}

	return flags
}

// QuoteArg quotes an argument for display when it contains shell metacharacters
func QuoteArg(arg string) string {
	return shellescape.Quote(arg)
}

// JoinCommand renders a command line for logs and compile_commands.json
func JoinCommand(name string, args []string) string {
	return shellescape.QuoteCommand(append([]string{name}, args...))
}

// CommandLabel is the short name a command is reported under in timing summaries:
// the first two words for longer commands, otherwise the whole command
func CommandLabel(name string, args []string) string {
	if len(args) > 1 {
		return JoinCommand(name, args[:1])
	}

	return JoinCommand(name, args)
}
