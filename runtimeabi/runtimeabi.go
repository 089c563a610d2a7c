// Package runtimeabi describes the runtime-library contract the Sox back
// end compiles against: the fixed sox_native_*/sox_runtime_* symbol names
// every generated object may call, and the allow-list the linker consults
// when an undefined symbol is otherwise unresolvable (spec.md §6).
package runtimeabi

// CoreSymbols is the fixed runtime-library surface generated code may call
// directly (spec.md §6). All of these accept and return the dynamic value
// type; none are defined within a Sox object, so every reference to one is
// an external call requiring a relocation.
var CoreSymbols = []string{
	"sox_native_add", "sox_native_subtract", "sox_native_multiply",
	"sox_native_divide", "sox_native_negate",
	"sox_native_equal", "sox_native_greater", "sox_native_less",
	"sox_native_not",
	"sox_native_get_property", "sox_native_set_property",
	"sox_native_get_index", "sox_native_set_index",
	"sox_native_print",
	"sox_native_alloc_string", "sox_native_alloc_table", "sox_native_alloc_array",
}

// ExtendedAllowList is consulted by the resolver for symbols beyond
// CoreSymbols — runtime support routines and the small slice of libc
// entry points object code commonly references without a local
// definition.
var ExtendedAllowList = []string{
	"sox_runtime_init", "sox_runtime_shutdown", "sox_runtime_gc_collect",
	"sox_runtime_panic", "sox_runtime_stack_overflow",
	"printf", "malloc", "free", "memcpy", "memset", "memmove", "abort", "exit",
}

// AllowList returns the full runtime/libc symbol set as a lookup set, for
// the resolver's phase-2 fallback (spec.md §4.8).
func AllowList() map[string]bool {
	m := make(map[string]bool, len(CoreSymbols)+len(ExtendedAllowList))
	for _, s := range CoreSymbols {
		m[s] = true
	}
	for _, s := range ExtendedAllowList {
		m[s] = true
	}
	return m
}

// IsRuntimeSymbol reports whether name is part of the fixed runtime
// contract (CoreSymbols); ExtendedAllowList is not consulted.
func IsRuntimeSymbol(name string) bool {
	for _, s := range CoreSymbols {
		if s == name {
			return true
		}
	}
	return false
}
