package sox

import (
	"fmt"

	"sox/config"
)

// CompileOptions is the code-generation options input of spec.md §6.
// OptimizationLevel is reserved and currently ignored, carried only so a
// future pass has a place to read it from without breaking callers.
type CompileOptions struct {
	OutputPath        string
	TargetArch        string // "x86_64", "arm64", or "aarch64"
	TargetOS          string // "linux", "macos", or "darwin"
	EmitObject        bool   // true: relocatable .o; false: executable-ready, entry aliased to "main"
	DebugOutput       bool
	OptimizationLevel int

	// Logger receives non-fatal diagnostics. Defaults to a silent logger
	// when nil.
	Logger *Logger
}

func (o CompileOptions) logger() *Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return defaultLogger
}

// FromConfig builds CompileOptions from a decoded soxc.toml (EXPANSION A),
// letting a caller construct options from a config file instead of flags.
func FromConfig(f *config.File) CompileOptions {
	return CompileOptions{
		OutputPath:  f.Output.Path,
		TargetArch:  f.Output.TargetArch,
		TargetOS:    f.Output.TargetOS,
		EmitObject:  f.Output.EmitObject,
		DebugOutput: f.Output.DebugOutput,
	}
}

func normalizeArch(s string) (string, error) {
	switch s {
	case "x86_64":
		return "x86_64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	}
	return "", fmt.Errorf("sox: unsupported target architecture %q", s)
}

func normalizeOS(s string) (string, error) {
	switch s {
	case "linux":
		return "linux", nil
	case "macos", "darwin":
		return "macos", nil
	}
	return "", fmt.Errorf("sox: unsupported target OS %q", s)
}
