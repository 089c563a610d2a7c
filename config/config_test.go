package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesBackendDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, "x86_64", cfg.Output.TargetArch)
	require.Equal(t, "linux", cfg.Output.TargetOS)
	require.True(t, cfg.Output.EmitObject)
	require.Equal(t, "out.o", cfg.Output.Path)
}

func TestLoadFromNonExistentReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFromDecodesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soxc.toml")
	body := `
[output]
path = "build/app.o"
target_arch = "arm64"
target_os = "macos"
emit_object = false
debug_output = true

[runtime]
allowed_symbols = ["my_libc_shim"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "build/app.o", cfg.Output.Path)
	require.Equal(t, "arm64", cfg.Output.TargetArch)
	require.Equal(t, "macos", cfg.Output.TargetOS)
	require.False(t, cfg.Output.EmitObject)
	require.True(t, cfg.Output.DebugOutput)
	require.Equal(t, []string{"my_libc_shim"}, cfg.Runtime.AllowedSymbols)
}

func TestLoadFromRejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("output = not valid toml ["), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestMergeAllowListAddsWithoutMutatingBase(t *testing.T) {
	cfg := Default()
	cfg.Runtime.AllowedSymbols = []string{"extra_symbol"}

	base := map[string]bool{"printf": true}
	merged := cfg.MergeAllowList(base)

	require.True(t, merged["printf"])
	require.True(t, merged["extra_symbol"])
	require.False(t, base["extra_symbol"])
}
