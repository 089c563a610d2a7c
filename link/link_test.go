package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuplicateGlobalDefinitionFails(t *testing.T) {
	// spec.md S5: two objects each defining a global foo -> resolve fails
	// with exactly one DuplicateDefinition error naming both objects.
	objs := []ObjectView{
		{Symbols: []SymbolDef{{Name: "foo", Binding: BindGlobal, SectionIndex: 0}}},
		{Symbols: []SymbolDef{{Name: "foo", Binding: BindGlobal, SectionIndex: 0}}},
	}
	r := NewResolver(objs, nil)
	_, errs := r.Resolve()
	require.Len(t, errs, 1)
	dup, ok := errs[0].(*DuplicateDefinitionError)
	require.True(t, ok)
	require.Equal(t, "foo", dup.Symbol)
}

func TestGlobalOverridesWeak(t *testing.T) {
	objs := []ObjectView{
		{Symbols: []SymbolDef{{Name: "foo", Binding: BindWeak, SectionIndex: 0}}},
		{Symbols: []SymbolDef{{Name: "foo", Binding: BindGlobal, SectionIndex: 0}}},
		{Symbols: []SymbolDef{{Name: "foo", Binding: BindUndefined}}},
	}
	r := NewResolver(objs, nil)
	resolved, errs := r.Resolve()
	require.Empty(t, errs)
	require.Equal(t, 1, resolved["foo"].DefiningObject)
}

func TestUndefinedRuntimeSymbolResolvesExternal(t *testing.T) {
	// spec.md S6: one object with an undefined printf -> resolve succeeds,
	// printf is external (DefiningObject == -1), no error recorded.
	objs := []ObjectView{
		{Symbols: []SymbolDef{{Name: "printf", Binding: BindUndefined}}},
	}
	r := NewResolver(objs, map[string]bool{"printf": true})
	resolved, errs := r.Resolve()
	require.Empty(t, errs)
	require.Equal(t, -1, resolved["printf"].DefiningObject)
}

func TestUndefinedNonRuntimeSymbolErrors(t *testing.T) {
	objs := []ObjectView{
		{Symbols: []SymbolDef{{Name: "mystery", Binding: BindUndefined}}},
	}
	r := NewResolver(objs, nil)
	_, errs := r.Resolve()
	require.Len(t, errs, 1)
	_, ok := errs[0].(*UndefinedSymbolError)
	require.True(t, ok)
}

func TestEverySymbolEndsInternalRuntimeOrErrored(t *testing.T) {
	// spec.md §8 invariant 6.
	objs := []ObjectView{
		{Symbols: []SymbolDef{
			{Name: "foo", Binding: BindGlobal},
			{Name: "bar", Binding: BindUndefined},
			{Name: "printf", Binding: BindUndefined},
		}},
	}
	r := NewResolver(objs, map[string]bool{"printf": true})
	resolved, errs := r.Resolve()
	for _, name := range []string{"foo", "printf"} {
		rs, ok := resolved[name]
		require.True(t, ok)
		require.True(t, rs.DefiningObject >= 0 || rs.DefiningObject == -1)
	}
	require.Len(t, errs, 1) // bar is undefined and not in the allow-list
}

func TestLayoutPageAlignsEachMergedSection(t *testing.T) {
	// spec.md §8 invariant 7: every merged section's vaddr is a multiple of
	// page_size, and every contribution offset honours its section's
	// original alignment.
	objs := []ObjectView{
		{Sections: []Section{{Type: SectionText, Align: 16, Data: make([]byte, 10)}}},
		{Sections: []Section{{Type: SectionText, Align: 16, Data: make([]byte, 20)}}},
		{Sections: []Section{{Type: SectionRodata, Align: 8, Data: make([]byte, 5)}}},
	}
	merged := Layout(objs, PageSizeELF, BaseAddrELF)
	require.Len(t, merged, 2)
	for _, m := range merged {
		require.Equal(t, uint64(0), m.VAddr%PageSizeELF)
		for _, c := range m.Contributions {
			require.Equal(t, 0, (int(m.VAddr)+c.Offset)%m.Align)
		}
	}
}

func TestFinalAddressComputation(t *testing.T) {
	objs := []ObjectView{
		{
			Symbols:  []SymbolDef{{Name: "f", Binding: BindGlobal, SectionIndex: 0, Value: 4}},
			Sections: []Section{{Type: SectionText, Align: 16, Data: make([]byte, 32)}},
		},
	}
	merged := Layout(objs, PageSizeELF, BaseAddrELF)
	addr, err := FinalAddress(merged, 0, 0, SectionText, 4)
	require.NoError(t, err)
	require.Equal(t, merged[0].VAddr+4, addr)
}
