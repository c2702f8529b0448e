// Package runner executes external tools on behalf of every toolchain.
//
// It is the shared process substrate of the build core: output capture,
// verbose streaming, dry-run substitution, raw log retention on failure and
// per-command timings all live here, so compilers, linkers and ecosystem
// build tools are invoked under one diagnostic contract.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// ExecFunc builds the process for a command; stdout and stderr both go to output
type ExecFunc func(ctx context.Context, cmd Command, output io.Writer) Commander

// Options controls how commands are executed
type Options struct {
	// Verbose echoes each command and streams its output live
	Verbose bool

	// DryRun prints commands instead of executing them
	DryRun bool

	// KeepLogs writes the captured output of failed commands to LogDir
	KeepLogs bool
	LogDir   string

	// Stdout receives echoed commands and streamed output (default os.Stdout)
	Stdout io.Writer

	Logger *slog.Logger

	// Exec and LookPath replace process creation and executable lookup
	Exec     ExecFunc
	LookPath func(file string) (string, error)
}

type lookResult struct {
	path string
	err  error
}

// Runner runs commands and collects their timings. It is safe for concurrent use.
type Runner struct {
	opts        Options
	execCommand ExecFunc
	lookPath    func(file string) (string, error)
	paths       *lru.Cache[string, lookResult]

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	timings []Timing
}

// New creates a runner
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		opts:        opts,
		execCommand: opts.Exec,
		lookPath:    opts.LookPath,
		out:         opts.Stdout,
	}

	if r.execCommand == nil {
		r.execCommand = func(ctx context.Context, cmd Command, output io.Writer) Commander {
			c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
			c.Dir = cmd.Dir
			c.Stdout = output
			c.Stderr = output
			return c
		}
	}

	if r.lookPath == nil {
		r.lookPath = exec.LookPath
	}

	// Size is fixed and positive, New cannot fail
	r.paths, _ = lru.New[string, lookResult](128)

	return r
}

// DryRun reports whether commands are only printed
func (r *Runner) DryRun() bool {
	return r.opts.DryRun
}

// Verbose reports whether commands are echoed
func (r *Runner) Verbose() bool {
	return r.opts.Verbose
}

// Run executes cmd and blocks until it exits.
// A non-zero exit returns a *CommandError carrying the captured output.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if r.opts.DryRun {
		r.printf("[dry-run]$ %s\n", cmd)
		return nil
	}

	if r.opts.Verbose {
		r.printf("$ %s\n", cmd)
	}

	var buf bytes.Buffer
	var output io.Writer = &buf
	if r.opts.Verbose {
		output = io.MultiWriter(&buf, writerFunc(r.write))
	}

	start := time.Now()
	err := r.execCommand(ctx, cmd, output).Run()
	if err != nil {
		return r.fail(cmd, buf.String(), err)
	}

	r.record(Timing{Label: cmd.Label(), Duration: time.Since(start)})
	r.opts.Logger.Debug("command finished", "cmd", cmd.Label(), "duration", time.Since(start))

	return nil
}

func (r *Runner) fail(cmd Command, output string, err error) error {
	cerr := &CommandError{
		Command:  cmd,
		ExitCode: -1,
		Output:   output,
		Err:      err,
	}

	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		cerr.ExitCode = coder.ExitCode()
	}

	if r.opts.KeepLogs && r.opts.LogDir != "" {
		path, werr := r.keepLog(cmd, output)
		if werr != nil {
			r.opts.Logger.Warn("failed to keep raw log", "error", werr)
		} else {
			cerr.LogFile = path
		}
	}

	r.opts.Logger.Debug("command failed", "cmd", cmd.String(), "exit_code", cerr.ExitCode)

	return cerr
}

func (r *Runner) keepLog(cmd Command, output string) (string, error) {
	if err := os.MkdirAll(r.opts.LogDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(r.opts.LogDir, fmt.Sprintf("mint-fail-%d.log", time.Now().UnixNano()))
	content := fmt.Sprintf("$ %s\n%s", cmd, output)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	return path, nil
}

// LookPath finds an executable in PATH, memoizing the answer
func (r *Runner) LookPath(name string) (string, error) {
	if res, ok := r.paths.Get(name); ok {
		return res.path, res.err
	}

	path, err := r.lookPath(name)
	r.paths.Add(name, lookResult{path: path, err: err})

	return path, err
}

// Timings returns the timing pairs recorded so far, in completion order
func (r *Runner) Timings() []Timing {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Timing, len(r.timings))
	copy(out, r.timings)
	return out
}

func (r *Runner) record(t Timing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timings = append(r.timings, t)
}

func (r *Runner) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()

	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) write(p []byte) (int, error) {
	r.outMu.Lock()
	defer r.outMu.Unlock()

	return r.out.Write(p)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
