package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// task is one source and its compiler invocation
type task struct {
	src     string
	obj     string
	cmd     runner.Command
	compile bool

	// set once the task settles
	err error
}

// plan builds one task per source and decides which need compiling.
// Dry-run compiles everything and creates nothing.
func (b *Builder) plan(cxx string, sources []string) ([]*task, error) {
	flags := b.CompileFlags()
	dryRun := b.Runner.DryRun()

	tasks := make([]*task, 0, len(sources))
	for _, src := range sources {
		obj := b.ObjectPath(src)

		args := make([]string, 0, len(flags)+6)
		args = append(args, "-c")
		args = append(args, flags...)
		args = append(args, "-I", b.Root, "-o", obj, src)

		t := &task{
			src:     src,
			obj:     obj,
			cmd:     runner.Command{Dir: b.Root, Name: cxx, Args: args},
			compile: dryRun || needsCompile(src, obj),
		}

		if !dryRun {
			if err := os.MkdirAll(filepath.Dir(obj), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create object directory: %w", err)
			}
		}

		if !t.compile {
			b.Logger.Debug("object up to date", "src", src)
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

// compile runs every stale task on a bounded pool. All tasks settle before
// the result is examined; a failure does not stop its siblings. It returns
// the tasks that compiled successfully, in source order.
func (b *Builder) compile(ctx context.Context, tasks []*task) ([]*task, error) {
	g := new(errgroup.Group)
	g.SetLimit(b.Jobs())

	for _, t := range tasks {
		if !t.compile {
			continue
		}

		g.Go(func() error {
			t.err = b.Runner.Run(ctx, t.cmd)
			return nil
		})
	}
	_ = g.Wait()

	var (
		compiled []*task
		failed   []*task
	)

	for _, t := range tasks {
		switch {
		case !t.compile:
		case t.err != nil:
			failed = append(failed, t)
		default:
			compiled = append(compiled, t)
		}
	}

	if len(failed) == 0 {
		return compiled, nil
	}

	first := failed[0]
	rel, _ := filepath.Rel(b.Root, first.src)

	msg := fmt.Sprintf("failed to compile %s", rel)
	if len(failed) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(failed)-1)
	}

	return compiled, toolchain.CommandFailure(codes.CompileFailed, first.err, first.src, "%s", msg)
}

// record marks freshly compiled sources clean and returns their database entries
func (b *Builder) record(compiled []*task) []cache.CompileCommand {
	entries := make([]cache.CompileCommand, 0, len(compiled))

	for _, t := range compiled {
		if err := b.MarkClean(t.src); err != nil {
			b.Logger.Debug("failed to fingerprint source", "src", t.src, "error", err)
		}

		entries = append(entries, cache.CompileCommand{
			Directory: b.Root,
			File:      t.src,
			Command:   t.cmd.String(),
		})
	}

	return entries
}
