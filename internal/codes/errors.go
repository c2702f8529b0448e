package codes

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure that can leave the build core
type Kind int

const (
	Internal Kind = iota
	ConfigError
	ToolchainNotFound
	ToolchainUnavailable
	NoSourcesFound
	CompileFailed
	LinkFailed
	CommandFailed
	// CacheCorrupt is recovered silently and only ever logged
	CacheCorrupt
)

var kindNames = map[Kind]string{
	Internal:             "Internal",
	ConfigError:          "ConfigError",
	ToolchainNotFound:    "ToolchainNotFound",
	ToolchainUnavailable: "ToolchainUnavailable",
	NoSourcesFound:       "NoSourcesFound",
	CompileFailed:        "CompileFailed",
	LinkFailed:           "LinkFailed",
	CommandFailed:        "CommandFailed",
	CacheCorrupt:         "CacheCorrupt",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type surfaced to the CLI layer
type Error struct {
	Kind    Kind
	Message string

	// Path is the source file or artifact the failure is about, if any
	Path string

	// ExitCode and Output describe a failed external process
	ExitCode int
	Output   string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if e.Path != "" && !strings.Contains(e.Message, e.Path) {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}

	processKind := e.Kind == CompileFailed || e.Kind == LinkFailed || e.Kind == CommandFailed

	switch {
	case processKind && e.ExitCode > 0:
		fmt.Fprintf(&b, ": exit code %d: %s", e.ExitCode, GetErrorMessage(e.ExitCode))
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, or Internal when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// From converts any error into an *Error, keeping an existing one intact
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{Kind: Internal, Message: "internal error", Err: err}
}
