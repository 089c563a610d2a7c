// Package config loads an optional soxc.toml: output defaults, the target
// triple, and additional runtime symbols the resolver should treat as
// allow-listed, mirroring lookbusy1344-arm_emulator's config package (a
// DefaultConfig, a LoadFrom that falls back to defaults when the file is
// absent, and a TOML decode via github.com/BurntSushi/toml otherwise).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// File is the decoded shape of soxc.toml.
type File struct {
	Output struct {
		Path        string `toml:"path"`
		TargetArch  string `toml:"target_arch"`
		TargetOS    string `toml:"target_os"`
		EmitObject  bool   `toml:"emit_object"`
		DebugOutput bool   `toml:"debug_output"`
	} `toml:"output"`

	// Runtime lists additional symbol names the resolver should accept as
	// externally defined, beyond runtimeabi's built-in allow-list
	// (spec.md §4.8, EXPANSION C).
	Runtime struct {
		AllowedSymbols []string `toml:"allowed_symbols"`
	} `toml:"runtime"`
}

// Default returns a File populated with the Sox back end's own defaults:
// x86_64-linux, relocatable object output, no extra runtime symbols.
func Default() *File {
	cfg := &File{}
	cfg.Output.TargetArch = "x86_64"
	cfg.Output.TargetOS = "linux"
	cfg.Output.EmitObject = true
	cfg.Output.Path = "out.o"
	return cfg
}

// LoadFrom reads and decodes path, returning Default() unchanged when the
// file does not exist.
func LoadFrom(path string) (*File, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// MergeAllowList returns base with every name from Runtime.AllowedSymbols
// added, without mutating base (spec.md §4.8's allow-list fallback,
// extended per EXPANSION C so an embedder can register extra runtime/libc
// symbols without recompiling).
func (f *File) MergeAllowList(base map[string]bool) map[string]bool {
	merged := make(map[string]bool, len(base)+len(f.Runtime.AllowedSymbols))
	for k, v := range base {
		merged[k] = v
	}
	for _, name := range f.Runtime.AllowedSymbols {
		merged[name] = true
	}
	return merged
}
