// Package toolchains holds the built-in build backends.
//
// Ecosystem backends hand the whole build to the ecosystem's own tool and
// carry no parallelism of their own. Direct-compile backends call a compiler
// themselves, treat the project as one coarse unit and rebuild all of it when
// any tracked source changed.
package toolchains

import (
	"context"
	"path/filepath"

	"github.com/Norgate-AV/mint/internal/codes"
	"github.com/Norgate-AV/mint/internal/toolchain"
	"github.com/Norgate-AV/mint/internal/utils"
)

// step is one external command of an ecosystem build
type step struct {
	name string
	args []string
}

// plan resolves the commands of a build and the artifacts it produces
type plan func(e *ecosystem) ([]step, []string, error)

// ecosystem delegates the build to the ecosystem's own tool
type ecosystem struct {
	toolchain.Base
	plan plan
}

var _ toolchain.Toolchain = (*ecosystem)(nil)

func ecosystemFactory(key string, p plan) toolchain.Factory {
	return func(env toolchain.Env) (toolchain.Toolchain, error) {
		return &ecosystem{Base: toolchain.NewBase(key, env), plan: p}, nil
	}
}

func (e *ecosystem) Build(ctx context.Context) ([]string, error) {
	steps, artifacts, err := e.plan(e)
	if err != nil {
		return nil, err
	}

	for _, s := range steps {
		if err := e.Run(ctx, s.name, s.args...); err != nil {
			return nil, err
		}
	}

	e.Logger.Info("build complete", "artifacts", artifacts)
	return artifacts, nil
}

func one(name string, args ...string) []step {
	return []step{{name: name, args: args}}
}

func planRust(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("cargo"); err != nil {
		return nil, nil, err
	}

	profile := "debug"
	args := []string{"build"}
	if e.Config.Release || e.Config.String("profile", "") == "release" {
		profile = "release"
		args = append(args, "--release")
	}

	return one("cargo", args...), []string{filepath.Join(e.Root, "target", profile)}, nil
}

func planGo(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("go"); err != nil {
		return nil, nil, err
	}

	args := []string{"build"}
	out := filepath.Join(e.Root, filepath.Base(e.Root))

	if output := e.Config.String("output", ""); output != "" {
		args = append(args, "-o", output)
		out = output
		if !filepath.IsAbs(out) {
			out = filepath.Join(e.Root, out)
		}
	}

	return one("go", args...), []string{out}, nil
}

func planPython(e *ecosystem) ([]step, []string, error) {
	dist := []string{filepath.Join(e.Root, "dist")}

	switch method := e.Config.String("method", "wheel"); method {
	case "wheel":
		path, err := e.RequireAny("python", "python3")
		if err != nil {
			return nil, nil, err
		}
		python := filepath.Base(path)

		return []step{
			{name: python, args: []string{"-m", "pip", "install", "--upgrade", "build"}},
			{name: python, args: []string{"-m", "build"}},
		}, dist, nil

	case "installer":
		if _, err := e.Require("pyinstaller"); err != nil {
			return nil, nil, err
		}

		entry := e.Config.String("entry", "")
		if entry == "" {
			return nil, nil, codes.New(codes.ConfigError, "python installer builds require 'entry' in the config")
		}

		return one("pyinstaller", "--onefile", entry), dist, nil

	default:
		return nil, nil, codes.New(codes.ConfigError, "unknown python build method %q (want wheel or installer)", method)
	}
}

func planJava(e *ecosystem) ([]step, []string, error) {
	switch {
	case e.Exists("gradlew"):
		return one("./gradlew", "build", "--console=plain"), nil, nil
	case e.Exists("mvnw"):
		return one("./mvnw", "package", "-q"), nil, nil
	}

	tool, err := e.RequireAny("gradle", "mvn")
	if err != nil {
		return nil, nil, err
	}

	if filepath.Base(tool) == "gradle" {
		return one("gradle", "build", "--console=plain"), nil, nil
	}

	return one("mvn", "package", "-q"), nil, nil
}

func planKotlin(e *ecosystem) ([]step, []string, error) {
	if e.Exists("gradlew") {
		return one("./gradlew", "build", "--console=plain"), nil, nil
	}

	if _, err := e.Require("gradle"); err != nil {
		return nil, nil, err
	}

	return one("gradle", "build", "--console=plain"), nil, nil
}

func planCSharp(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("dotnet"); err != nil {
		return nil, nil, err
	}

	return one("dotnet", "build", "-nologo", "-clp:NoSummary"), nil, nil
}

func planSwift(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("swift"); err != nil {
		return nil, nil, err
	}

	return one("swift", "build", "-c", "release"), []string{filepath.Join(e.Root, ".build", "release")}, nil
}

func planRuby(e *ecosystem) ([]step, []string, error) {
	if e.Exists("Rakefile") {
		if _, err := e.Require("rake"); err != nil {
			return nil, nil, err
		}
		return one("rake", "build"), nil, nil
	}

	gemspecs, _ := filepath.Glob(filepath.Join(e.Root, "*.gemspec"))
	if len(gemspecs) == 0 {
		return nil, nil, codes.New(codes.NoSourcesFound, "no Rakefile or gemspec to build in %s", e.Root)
	}

	if _, err := e.Require("gem"); err != nil {
		return nil, nil, err
	}

	return one("gem", "build", filepath.Base(gemspecs[0])), nil, nil
}

func planPHP(e *ecosystem) ([]step, []string, error) {
	if !e.Exists("composer.json") {
		return nil, nil, codes.New(codes.NoSourcesFound, "composer.json not found in %s", e.Root)
	}

	args := []string{"install", "--no-dev", "--optimize-autoloader"}

	if e.Exists("composer.phar") {
		if _, err := e.Require("php"); err != nil {
			return nil, nil, err
		}
		return one("php", append([]string{"composer.phar"}, args...)...), nil, nil
	}

	if _, err := e.Require("composer"); err != nil {
		return nil, nil, err
	}

	return one("composer", args...), nil, nil
}

func planDart(e *ecosystem) ([]step, []string, error) {
	if !e.Exists("pubspec.yaml") {
		return nil, nil, codes.New(codes.NoSourcesFound, "pubspec.yaml not found in %s", e.Root)
	}

	tool, err := e.RequireAny("flutter", "dart")
	if err != nil {
		return nil, nil, err
	}

	if filepath.Base(tool) == "flutter" {
		return []step{
			{name: "flutter", args: []string{"pub", "get"}},
			{name: "flutter", args: []string{"build", "apk", "--debug"}},
		}, nil, nil
	}

	return []step{
		{name: "dart", args: []string{"pub", "get"}},
		{name: "dart", args: []string{"compile", "exe", "bin/main.dart"}},
	}, []string{filepath.Join(e.Root, "bin", "main.exe")}, nil
}

func planScala(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("sbt"); err != nil {
		return nil, nil, err
	}

	return one("sbt", "compile"), nil, nil
}

func planHaskell(e *ecosystem) ([]step, []string, error) {
	if e.Exists("stack.yaml") {
		if _, err := e.Require("stack"); err != nil {
			return nil, nil, err
		}
		return one("stack", "build"), nil, nil
	}

	if _, err := e.Require("cabal"); err != nil {
		return nil, nil, err
	}

	return one("cabal", "build", "all"), nil, nil
}

func planZig(e *ecosystem) ([]step, []string, error) {
	if _, err := e.Require("zig"); err != nil {
		return nil, nil, err
	}

	return one("zig", "build"), []string{filepath.Join(e.Root, "zig-out")}, nil
}

// planCommand runs the command given by the cmd key, either a list or a single string
func planCommand(e *ecosystem) ([]step, []string, error) {
	var argv []string
	if raw, ok := e.Config.Extra["cmd"].(string); ok {
		argv = utils.SplitFlags(raw)
	} else {
		argv = e.Config.StringSlice("cmd", nil)
	}

	if len(argv) == 0 {
		return nil, nil, codes.New(codes.ConfigError, "the cmd toolchain requires a 'cmd' list in the config")
	}

	return one(argv[0], argv[1:]...), nil, nil
}
