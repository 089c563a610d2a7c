package sox

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	arm64codegen "sox/codegen/arm64"
	x86codegen "sox/codegen/x86"
	"sox/ir"
	"sox/irbuild"
	"sox/objfile/elf"
	"sox/objfile/macho"
)

// entrySymbol is the fixed name every generated object exposes for its
// top-level function, independent of whatever name the input closure
// carried (spec.md §6).
const entrySymbol = "sox_main"

// GenerateObject lowers cl into a relocatable object file at
// opts.OutputPath (emit_object forced true; spec.md §6). It returns true on
// success, matching the boolean-result convention of generate_object.
func GenerateObject(cl irbuild.Closure, opts CompileOptions) (bool, error) {
	opts.EmitObject = true
	return generate(cl, opts)
}

// GenerateExecutable lowers cl the same way as GenerateObject but also
// aliases the entry point as "main" (emit_object forced false; spec.md §6).
func GenerateExecutable(cl irbuild.Closure, opts CompileOptions) (bool, error) {
	opts.EmitObject = false
	return generate(cl, opts)
}

func generate(cl irbuild.Closure, opts CompileOptions) (bool, error) {
	log := opts.logger()

	arch, err := normalizeArch(opts.TargetArch)
	if err != nil {
		return false, err
	}
	osName, err := normalizeOS(opts.TargetOS)
	if err != nil {
		return false, err
	}

	mod := &ir.Module{SourceFile: cl.Name}
	builder := irbuild.New()
	entryIdx, err := builder.Build(mod, cl)
	if err != nil {
		return false, fmt.Errorf("sox: building IR: %w", err)
	}
	mod.Functions[entryIdx].Name = entrySymbol
	for _, d := range builder.Diagnostics {
		log.Warn("irbuild: %s", d)
	}

	code, symbols, relocs, rodata, roSymbols, diags, err := codegenFor(arch, mod)
	if err != nil {
		return false, fmt.Errorf("sox: code generation: %w", err)
	}
	for _, d := range diags {
		log.Warn("codegen: %s", d)
	}

	if !opts.EmitObject {
		var entrySize int
		for _, s := range symbols {
			if s.Name == entrySymbol {
				entrySize = s.Size
				break
			}
		}
		symbols = append(symbols, objSymbol{Name: "main", Offset: 0, Size: entrySize, Func: true})
	}

	var out []byte
	switch osName {
	case "linux":
		out, err = buildELF(arch, code, symbols, relocs, rodata, roSymbols)
	case "macos":
		out, err = buildMachO(arch, code, symbols, relocs, rodata, roSymbols)
	default:
		return false, fmt.Errorf("sox: unsupported target OS %q", osName)
	}
	if err != nil {
		return false, fmt.Errorf("sox: writing object: %w", err)
	}

	if opts.DebugOutput {
		log.Info("generated %d bytes of code, %d symbols, %d relocations for %s-%s",
			len(code), len(symbols), len(relocs), arch, osName)
	}

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
			return false, fmt.Errorf("sox: writing %s: %w", opts.OutputPath, err)
		}
	}
	return true, nil
}

// objSymbol is the codegen-independent symbol shape this package builds
// before handing it to whichever object writer the target OS selects.
type objSymbol struct {
	Name   string
	Offset int
	Size   int
	Func   bool
}

// objReloc is likewise the codegen-independent relocation shape; Kind is
// only meaningful for ARM64 targets.
type objReloc struct {
	Offset int
	Symbol string
	Addend int64
	Kind   int
}

// objRoSymbol is one interned string literal's symbol name and byte offset
// within the module's rodata blob.
type objRoSymbol struct {
	Name   string
	Offset int
}

func codegenFor(arch string, mod *ir.Module) (code []byte, symbols []objSymbol, relocs []objReloc, rodata []byte, roSymbols []objRoSymbol, diags []string, err error) {
	switch arch {
	case "x86_64":
		g := x86codegen.NewGenerator()
		if err := g.Generate(mod); err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		for _, l := range g.Layouts() {
			symbols = append(symbols, objSymbol{Name: l.Name, Offset: l.Offset, Size: l.Size, Func: true})
		}
		for _, r := range g.Relocations() {
			relocs = append(relocs, objReloc{Offset: r.Offset, Symbol: r.Symbol, Addend: int64(r.Addend)})
		}
		for _, e := range g.RoDataEntries() {
			roSymbols = append(roSymbols, objRoSymbol{Name: e.Name, Offset: e.Offset})
		}
		return g.Code(), symbols, relocs, g.RoData(), roSymbols, g.Diagnostics, nil

	case "arm64":
		g := arm64codegen.NewGenerator()
		if err := g.Generate(mod); err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		for _, l := range g.Layouts() {
			symbols = append(symbols, objSymbol{Name: l.Name, Offset: l.InstrOffset * 4, Size: l.InstrCount * 4, Func: true})
		}
		for _, r := range g.Relocations() {
			relocs = append(relocs, objReloc{Offset: r.InstrOffset * 4, Symbol: r.Symbol, Addend: r.Addend, Kind: int(r.Kind)})
		}
		for _, e := range g.RoDataEntries() {
			roSymbols = append(roSymbols, objRoSymbol{Name: e.Name, Offset: e.Offset})
		}
		return g.Words(), symbols, relocs, g.RoData(), roSymbols, g.Diagnostics, nil
	}
	return nil, nil, nil, nil, nil, nil, fmt.Errorf("sox: unknown architecture %q", arch)
}

// externalSymbols returns the set of relocation targets that name neither a
// defined function nor an interned rodata entry: calls into the
// sox_native_* runtime contract, resolved later by the linker/resolver
// (spec.md §8).
func externalSymbols(relocs []objReloc, symbols []objSymbol, roSymbols []objRoSymbol) []string {
	defined := make(map[string]bool, len(symbols)+len(roSymbols))
	for _, s := range symbols {
		defined[s.Name] = true
	}
	for _, r := range roSymbols {
		defined[r.Name] = true
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range relocs {
		if defined[r.Symbol] || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		names = append(names, r.Symbol)
	}
	return names
}

func buildELF(arch string, code []byte, symbols []objSymbol, relocs []objReloc, rodata []byte, roSymbols []objRoSymbol) ([]byte, error) {
	machine := uint16(unix.EM_X86_64)
	if arch == "arm64" {
		machine = uint16(unix.EM_AARCH64)
	}
	obj := elf.Object{Machine: machine, Code: code, RoData: rodata}
	for _, s := range symbols {
		obj.Symbols = append(obj.Symbols, elf.Symbol{
			Name: s.Name, Value: uint64(s.Offset), Size: uint64(s.Size),
			Global: s.Name == entrySymbol || s.Name == "main", Func: s.Func, SectionIndex: elf.TextSectionIndex,
		})
	}
	for _, r := range roSymbols {
		obj.Symbols = append(obj.Symbols, elf.Symbol{
			Name: r.Name, Value: uint64(r.Offset), SectionIndex: elf.RodataSectionIndex,
		})
	}
	for _, name := range externalSymbols(relocs, symbols, roSymbols) {
		obj.Symbols = append(obj.Symbols, elf.Symbol{Name: name, Global: true, SectionIndex: 0})
	}
	for _, r := range relocs {
		obj.Relocs = append(obj.Relocs, elf.Relocation{Offset: uint64(r.Offset), Symbol: r.Symbol, Addend: r.Addend})
	}
	return elf.Build(obj)
}

func buildMachO(arch string, code []byte, symbols []objSymbol, relocs []objReloc, rodata []byte, roSymbols []objRoSymbol) ([]byte, error) {
	obj := macho.Object{CPU: arch, Code: code, CStrings: rodata}
	for _, s := range symbols {
		obj.Symbols = append(obj.Symbols, macho.Symbol{
			Name: s.Name, Value: uint64(s.Offset),
			Global: s.Name == entrySymbol || s.Name == "main",
		})
	}
	for _, r := range roSymbols {
		obj.Symbols = append(obj.Symbols, macho.Symbol{Name: r.Name, Value: uint64(r.Offset), CString: true})
	}
	for _, name := range externalSymbols(relocs, symbols, roSymbols) {
		obj.Symbols = append(obj.Symbols, macho.Symbol{Name: name, Global: true, Undefined: true})
	}
	for _, r := range relocs {
		obj.Relocs = append(obj.Relocs, macho.Relocation{Offset: r.Offset, Kind: macho.RelocKind(r.Kind), Symbol: r.Symbol})
	}
	return macho.Build(obj)
}
