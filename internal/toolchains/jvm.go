package toolchains

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// javacBatch bounds the number of sources per javac invocation
const javacBatch = 100

var javaNative = unitRecipe{
	what:      "Java",
	patterns:  []string{"*.java"},
	preferDir: "src",
	suffix:    ".jar",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("javac"); err != nil {
			return err
		}

		if err := prepareClasses(u); err != nil {
			return err
		}

		for i := 0; i < len(u.sources); i += javacBatch {
			batch := u.sources[i:min(i+javacBatch, len(u.sources))]
			args := append([]string{"-d", u.classesDir()}, batch...)
			if err := u.compileWith(ctx, "javac", args...); err != nil {
				return err
			}
		}

		return packageJar(ctx, u)
	},
}

var kotlinNative = unitRecipe{
	what:     "Kotlin",
	patterns: []string{"*.kt"},
	suffix:   ".jar",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("kotlinc"); err != nil {
			return err
		}

		if err := prepareClasses(u); err != nil {
			return err
		}

		args := append([]string{"-d", u.classesDir()}, u.sources...)
		if err := u.compileWith(ctx, "kotlinc", args...); err != nil {
			return err
		}

		return packageJar(ctx, u)
	},
}

var scalaNative = unitRecipe{
	what:     "Scala",
	patterns: []string{"*.scala"},
	suffix:   ".jar",
	compile: func(ctx context.Context, u *unit) error {
		if _, err := u.Require("scalac"); err != nil {
			return err
		}

		if err := prepareClasses(u); err != nil {
			return err
		}

		args := append([]string{"-d", u.classesDir()}, u.sources...)
		if err := u.compileWith(ctx, "scalac", args...); err != nil {
			return err
		}

		return packageJar(ctx, u)
	},
}

func prepareClasses(u *unit) error {
	if u.Runner.DryRun() {
		return nil
	}

	return u.EnsureDir(u.classesDir())
}

// packageJar bundles the class directory into the artifact. A main_class key
// adds a manifest naming the entry point.
func packageJar(ctx context.Context, u *unit) error {
	if _, err := u.Require("jar"); err != nil {
		return err
	}

	classes := u.classesDir()

	mainClass := u.Config.String("main_class", "")
	if mainClass == "" {
		return u.RunIn(ctx, u.Root, "jar", "cf", u.output, "-C", classes, ".")
	}

	manifest := filepath.Join(u.BuildDir, "MANIFEST.MF")
	if !u.Runner.DryRun() {
		if err := os.WriteFile(manifest, []byte(fmt.Sprintf("Main-Class: %s\n", mainClass)), 0o644); err != nil {
			return fmt.Errorf("failed to write jar manifest: %w", err)
		}
	}

	return u.RunIn(ctx, u.Root, "jar", "cfm", u.output, manifest, "-C", classes, ".")
}
