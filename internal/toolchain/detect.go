package toolchain

import (
	"os"
	"path/filepath"
)

// DefaultLang is used when no marker matches
const DefaultLang = "cpp"

type detectRule struct {
	key   string
	match func(root string, skip []string) bool
}

// Ecosystem manifests come before loose source globs; first match wins
var detectRules = []detectRule{
	{"rust", hasFile("Cargo.toml")},
	{"go", anyOf(hasFile("go.mod"), hasTopLevel("*.go"))},
	{"node", hasFile("package.json")},
	{"python", hasFile("pyproject.toml", "setup.py")},
	{"php_native", hasFile("composer.json", "index.php")},
	{"java", hasFile("gradlew", "build.gradle", "build.gradle.kts", "pom.xml", "mvnw")},
	{"csharp", hasTopLevel("*.csproj", "*.sln")},
	{"swift", hasFile("Package.swift")},
	{"dart", hasFile("pubspec.yaml")},
	{"scala", hasFile("build.sbt")},
	{"haskell", anyOf(hasFile("stack.yaml"), hasTopLevel("*.cabal"))},
	{"zig", hasFile("build.zig")},
	{"ruby", anyOf(hasFile("Rakefile"), hasTopLevel("*.gemspec"))},
	{"ruby_native", hasAnywhere("*.rb")},
	{"lua_native", hasAnywhere("*.lua")},
	{"yaml", hasAnywhere("*.yaml", "*.yml")},
}

// Detect picks the language key for the project at root. Directories in
// skip, typically the build directory, are not searched.
func Detect(root string, skip ...string) string {
	for _, rule := range detectRules {
		if rule.match(root, skip) {
			return rule.key
		}
	}

	return DefaultLang
}

func hasFile(names ...string) func(string, []string) bool {
	return func(root string, _ []string) bool {
		for _, name := range names {
			if info, err := os.Stat(filepath.Join(root, name)); err == nil && !info.IsDir() {
				return true
			}
		}
		return false
	}
}

func hasTopLevel(patterns ...string) func(string, []string) bool {
	return func(root string, _ []string) bool {
		for _, p := range patterns {
			if matches, _ := filepath.Glob(filepath.Join(root, p)); len(matches) > 0 {
				return true
			}
		}
		return false
	}
}

func hasAnywhere(patterns ...string) func(string, []string) bool {
	return func(root string, skip []string) bool {
		return ContainsFile(root, skip, MatchPatterns(patterns...))
	}
}

func anyOf(matchers ...func(string, []string) bool) func(string, []string) bool {
	return func(root string, skip []string) bool {
		for _, m := range matchers {
			if m(root, skip) {
				return true
			}
		}
		return false
	}
}
