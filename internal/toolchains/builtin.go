package toolchains

import (
	"github.com/Norgate-AV/mint/internal/native"
	"github.com/Norgate-AV/mint/internal/toolchain"
)

// Builtin returns a registry holding every backend mint ships with
func Builtin() *toolchain.Registry {
	r := toolchain.NewRegistry()

	factories := map[string]toolchain.Factory{
		native.Key: native.Factory,

		"rust":    ecosystemFactory("rust", planRust),
		"go":      ecosystemFactory("go", planGo),
		"node":    ecosystemFactory("node", planNode),
		"python":  ecosystemFactory("python", planPython),
		"java":    ecosystemFactory("java", planJava),
		"kotlin":  ecosystemFactory("kotlin", planKotlin),
		"csharp":  ecosystemFactory("csharp", planCSharp),
		"swift":   ecosystemFactory("swift", planSwift),
		"ruby":    ecosystemFactory("ruby", planRuby),
		"php":     ecosystemFactory("php", planPHP),
		"dart":    ecosystemFactory("dart", planDart),
		"scala":   ecosystemFactory("scala", planScala),
		"haskell": ecosystemFactory("haskell", planHaskell),
		"zig":     ecosystemFactory("zig", planZig),
		"cmd":     ecosystemFactory("cmd", planCommand),

		"java_native":    unitFactory("java_native", javaNative),
		"kotlin_native":  unitFactory("kotlin_native", kotlinNative),
		"scala_native":   unitFactory("scala_native", scalaNative),
		"swift_native":   unitFactory("swift_native", swiftNative),
		"csharp_native":  unitFactory("csharp_native", csharpNative),
		"haskell_native": unitFactory("haskell_native", haskellNative),
		"dart_native":    unitFactory("dart_native", dartNative),
		"php_native":     unitFactory("php_native", phpNative),
		"ruby_native":    unitFactory("ruby_native", rubyNative),
		"rust_native":    graphUnitFactory("rust_native", rustNative, rustcRule),
		"zig_native":     graphUnitFactory("zig_native", zigNative, zigRule),
		"lua_native":     graphUnitFactory("lua_native", luaNative, luacRule),

		YAMLKey: newYAML,
	}

	for key, factory := range factories {
		// Keys are unique literals
		_ = r.Register(key, factory)
	}

	return r
}
