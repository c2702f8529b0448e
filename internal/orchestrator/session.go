package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/mint/internal/cache"
	"github.com/Norgate-AV/mint/internal/config"
	"github.com/Norgate-AV/mint/internal/runner"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// session is the state of one operation. It owns the fingerprint caches its
// toolchains share, one per build directory.
type session struct {
	o      *Orchestrator
	root   string
	lang   string
	cfg    *config.Config
	runner *runner.Runner
	logger *slog.Logger

	caches map[string]*cache.Fingerprints
}

func (o *Orchestrator) newSession(req Request) (*session, error) {
	root := req.Root
	if root == "" {
		root = "."
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg := req.Config
	if cfg == nil {
		cfg = config.Default(root)
	}

	lang := req.Lang
	if lang == "" {
		lang = cfg.Lang
	}

	if lang == "" || lang == config.DefaultLang {
		lang = toolchain.Detect(root, cfg.BuildDir)
		o.opts.Logger.Debug("detected language", "lang", lang)
	}

	r := runner.New(runner.Options{
		Verbose:  cfg.Verbose,
		DryRun:   cfg.DryRun,
		KeepLogs: cfg.KeepLogs,
		LogDir:   filepath.Join(cfg.BuildDir, "logs"),
		Stdout:   o.opts.Stdout,
		Logger:   o.opts.Logger,
		Exec:     o.opts.Exec,
		LookPath: o.opts.LookPath,
	})

	return &session{
		o:      o,
		root:   root,
		lang:   lang,
		cfg:    cfg,
		runner: r,
		logger: o.opts.Logger,
		caches: make(map[string]*cache.Fingerprints),
	}, nil
}

// cache returns the session's fingerprint cache for buildDir, loading it once
func (s *session) cache(buildDir string) *cache.Fingerprints {
	fp, ok := s.caches[buildDir]
	if !ok {
		fp = cache.Load(buildDir, s.logger)
		s.caches[buildDir] = fp
	}

	return fp
}

func (s *session) env() toolchain.Env {
	return toolchain.Env{
		Root:     s.root,
		BuildDir: s.cfg.BuildDir,
		Config:   s.cfg,
		Cache:    s.cache(s.cfg.BuildDir),
		Runner:   s.runner,
		Logger:   s.logger,
		Self:     s.o.opts.Self,
	}
}

func (s *session) toolchain(key string) (toolchain.Toolchain, error) {
	return s.o.registry.New(key, s.env())
}

// clean lets the toolchain remove its own outputs, then removes the build
// directory. Caches loaded before the clean are dropped unsaved.
func (s *session) clean(ctx context.Context) error {
	tc, err := s.toolchain(s.lang)
	if err != nil {
		return err
	}

	if s.cfg.DryRun {
		fmt.Fprintf(s.o.opts.Stdout, "[dry-run] remove %s\n", s.cfg.BuildDir)
		return nil
	}

	if cleaner, ok := tc.(toolchain.Cleaner); ok {
		if err := cleaner.Clean(ctx); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(s.cfg.BuildDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.cfg.BuildDir, err)
	}

	s.caches = make(map[string]*cache.Fingerprints)
	s.logger.Info("cleaned", "build_dir", s.cfg.BuildDir)

	return nil
}

// flush saves every cache the session changed. Failures are logged and
// never change the outcome of the operation.
func (s *session) flush() {
	if s.cfg.DryRun {
		return
	}

	for dir, fp := range s.caches {
		if !fp.Changed() {
			continue
		}

		if err := fp.Save(); err != nil {
			s.logger.Debug("failed to flush fingerprint cache", "build_dir", dir, "error", err)
		}
	}
}
