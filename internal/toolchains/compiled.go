package toolchains

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/mint/internal/graph"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

var rustNative = unitRecipe{
	what:     "Rust",
	patterns: []string{"*.rs"},
	entry:    "src/main.rs",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("rustc"); err != nil {
			return err
		}

		return u.compileWith(ctx, "rustc", u.entry, "--edition=2021", "-O", "-o", u.output)
	},
}

var swiftNative = unitRecipe{
	what:      "Swift",
	patterns:  []string{"*.swift"},
	preferDir: "Sources",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("swiftc"); err != nil {
			return err
		}

		args := append([]string{"-o", u.output, "-O"}, u.sources...)
		return u.compileWith(ctx, "swiftc", args...)
	},
}

var csharpNative = unitRecipe{
	what:     "C#",
	patterns: []string{"*.cs"},
	suffix:   ".exe",
	compile: func(ctx context.Context, u *unit) error {
		path, err := u.RequireAny("csc", "dotnet")
		if err != nil {
			return err
		}

		if filepath.Base(path) == "dotnet" {
			return u.compileWith(ctx, "dotnet", "build", "-c", "Release", "-o", filepath.Dir(u.output), "--nologo")
		}

		args := append([]string{"/nologo", "/optimize", "/out:" + u.output}, u.sources...)
		return u.compileWith(ctx, "csc", args...)
	},
}

var haskellNative = unitRecipe{
	what:     "Haskell",
	patterns: []string{"*.hs"},
	entry:    "Main.hs",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("ghc"); err != nil {
			return err
		}

		if err := prepareClasses(u); err != nil {
			return err
		}

		return u.compileWith(ctx, "ghc", "-O2", "-outputdir", u.classesDir(), "-o", u.output, u.entry)
	},
}

var zigNative = unitRecipe{
	what:     "Zig",
	patterns: []string{"*.zig"},
	entry:    "src/main.zig",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("zig"); err != nil {
			return err
		}

		return u.compileWith(ctx, "zig", "build-exe", u.entry, "-O", "ReleaseFast", "-femit-bin="+u.output)
	},
}

var dartNative = unitRecipe{
	what:     "Dart",
	patterns: []string{"*.dart"},
	entry:    "bin/main.dart",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("dart"); err != nil {
			return err
		}

		if err := u.Run(ctx, "dart", "pub", "get"); err != nil {
			return err
		}

		return u.compileWith(ctx, "dart", "compile", "exe", u.entry, "-o", u.output)
	},
}

// pharStub runs the entry script when the archive is executed directly
const pharStub = "<?php Phar::mapPhar(); require 'phar://' . __FILE__ . '/%s'; __HALT_COMPILER();\n"

var phpNative = unitRecipe{
	what:     "PHP",
	patterns: []string{"*.php"},
	entry:    "index.php",
	suffix:   ".phar",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("php"); err != nil {
			return err
		}

		rel, err := filepath.Rel(u.Root, u.entry)
		if err != nil {
			rel = filepath.Base(u.entry)
		}

		stub := u.OutputPath("phar_stub.php")
		if !u.Runner.DryRun() {
			if err := os.WriteFile(stub, []byte(fmt.Sprintf(pharStub, filepath.ToSlash(rel))), 0o644); err != nil {
				return fmt.Errorf("failed to write phar stub: %w", err)
			}
		}

		script := fmt.Sprintf(
			"$phar = new Phar('%s'); $phar->buildFromDirectory('.'); $phar->setStub(file_get_contents('%s'));",
			u.output, stub,
		)

		return u.compileWith(ctx, "php", "-d", "phar.readonly=0", "-r", script)
	},
}

var luaNative = unitRecipe{
	what:     "Lua",
	patterns: []string{"*.lua"},
	suffix:   ".luac",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("luac"); err != nil {
			return err
		}

		return u.compileWith(ctx, "luac", "-o", u.output, u.main())
	},
}

// graphUnit is a unit whose single compile step is also expressible as one
// ninja edge from the entry file to the artifact.
type graphUnit struct {
	*unit
	rule graph.Rule
}

var _ toolchain.GraphContributor = (*graphUnit)(nil)

// graphUnitFactory registers a graph unit. Executables without a suffix of
// their own are tagged with the language, e.g. bin/app-rust, so they never
// share a path with the native link output in one build graph.
func graphUnitFactory(key string, recipe unitRecipe, rule graph.Rule) toolchain.Factory {
	if recipe.suffix == "" {
		recipe.suffix = "-" + strings.TrimSuffix(key, "_native")
	}

	return func(env toolchain.Env) (toolchain.Toolchain, error) {
		return &graphUnit{unit: newUnit(key, env, recipe), rule: rule}, nil
	}
}

// input is the file the edge compiles, or "" when the project has none
func (g *graphUnit) input() string {
	if g.entry != "" {
		if fileExists(g.entry) {
			return g.entry
		}
		return ""
	}

	sources, err := g.discover()
	if err != nil || len(sources) == 0 {
		return ""
	}

	return sources[0]
}

func (g *graphUnit) Rules() []graph.Rule {
	if g.input() == "" {
		return nil
	}

	return []graph.Rule{g.rule}
}

func (g *graphUnit) Edges() []graph.Edge {
	in := g.input()
	if in == "" {
		return nil
	}

	return []graph.Edge{{Outputs: []string{g.output}, Rule: g.rule.Name, Inputs: []string{in}}}
}

var (
	rustcRule = graph.Rule{Name: "rustc", Command: "rustc $in --edition=2021 -O -o $out", Description: "RUSTC $out"}
	zigRule   = graph.Rule{Name: "zig", Command: "zig build-exe $in -O ReleaseFast -femit-bin=$out", Description: "ZIG $out"}
	luacRule  = graph.Rule{Name: "luac", Command: "luac -o $out $in", Description: "LUAC $out"}
)
