// Package macho writes minimal Mach-O 64 relocatable object files: a
// __TEXT,__text section, an on-demand __TEXT,__cstring section, a symbol
// table with externally visible names prefixed by "_", and a relocation
// list encoded as bit-packed 32-bit r_info words (spec.md §4.7). Like the
// ELF writer, layout is computed in two passes before one serialisation.
package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const (
	magic64 = 0xfeedfacf

	cpuTypeX86_64      = 0x01000007
	cpuSubtypeX86_64All = 3
	cpuTypeARM64       = 0x0100000c
	cpuSubtypeARM64All = 0

	mhObject = 0x1

	lcSegment64     = 0x19
	lcSymtab        = 0x2
	lcDysymtab      = 0xb
	lcBuildVersion  = 0x32

	platformMacOS = 1

	nUndf = 0x00
	nExt  = 0x01
	nSect = 0x0e

	// Section numbers this writer ever assigns: __text is always section 1,
	// __cstring (when present) always section 2.
	textSection    = 1
	cstringSection = 2

	// ARM64 Mach-O relocation type codes (spec.md §4.7).
	relocBranch26 = 2
	relocPage21   = 3
	relocPageOff12 = 4
)

// RelocKind mirrors asm/arm64.RelocKind without importing codegen/asm
// packages into this low-level writer.
type RelocKind int

const (
	RelocCALL26 RelocKind = iota
	RelocJUMP26
	RelocADRPrelPgHi21
	RelocAddAbsLo12NC
)

func machoRelocType(k RelocKind) uint32 {
	switch k {
	case RelocCALL26, RelocJUMP26:
		return relocBranch26
	case RelocADRPrelPgHi21:
		return relocPage21
	case RelocAddAbsLo12NC:
		return relocPageOff12
	}
	return relocBranch26
}

// Symbol is one nlist_64 entry. A defined symbol lives in __text unless
// CString is set, in which case it lives in __cstring; Undefined marks an
// external symbol with no definition in this object at all (N_UNDF),
// letting the resolver supply the real address later.
type Symbol struct {
	Name      string
	Value     uint64
	Global    bool
	Undefined bool
	CString   bool
}

type Relocation struct {
	Offset int // byte offset within __text
	Kind   RelocKind
	Symbol string
}

// Object is the input to Write/Build: code and on-demand string-literal
// bytes for one module's __TEXT segment, plus symbols and relocations.
type Object struct {
	CPU        string // "arm64" or "x86_64"
	Code       []byte
	CStrings   []byte
	Symbols    []Symbol
	Relocs     []Relocation
}

func Write(path string, obj Object) error {
	data, err := Build(obj)
	if err != nil {
		return fmt.Errorf("macho: build: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("macho: write %s: %w", path, err)
	}
	return nil
}

func Build(obj Object) ([]byte, error) {
	var cputype, cpusubtype uint32
	switch obj.CPU {
	case "arm64":
		cputype, cpusubtype = cpuTypeARM64, cpuSubtypeARM64All
	case "x86_64":
		cputype, cpusubtype = cpuTypeX86_64, cpuSubtypeX86_64All
	default:
		return nil, fmt.Errorf("macho: unsupported cpu %q", obj.CPU)
	}

	hasCStrings := len(obj.CStrings) > 0
	nsects := 1
	if hasCStrings {
		nsects = 2
	}

	strtab := newStringTable()
	nameOffsets := make([]uint32, len(obj.Symbols))
	for i, s := range obj.Symbols {
		name := s.Name
		if s.Global {
			name = "_" + name
		}
		nameOffsets[i] = strtab.add(name)
	}

	// --- Pass 1: size/offset accounting ---
	headerSize := 32
	segCmdSize := 72 + nsects*80
	symtabCmdSize := 24
	dysymtabCmdSize := 80
	buildVersionCmdSize := 24 + 8 // one build_tool_version entry
	sizeofcmds := segCmdSize + symtabCmdSize + dysymtabCmdSize + buildVersionCmdSize
	ncmds := 4

	off := uint64(headerSize + sizeofcmds)
	align := func(a uint64) { off = (off + a - 1) &^ (a - 1) }

	align(16)
	textOff := off
	off += uint64(len(obj.Code))

	var cstringOff uint64
	if hasCStrings {
		align(16)
		cstringOff = off
		off += uint64(len(obj.CStrings))
	}

	align(8)
	relOff := off
	off += uint64(len(obj.Relocs) * 8)

	align(8)
	symOff := off
	off += uint64(len(obj.Symbols) * 16)

	align(8)
	strOff := off
	off += uint64(len(strtab.bytes()))

	fileSize := off

	// --- Pass 2: serialise ---
	var buf bytes.Buffer
	writeMachHeader(&buf, cputype, cpusubtype, uint32(ncmds), uint32(sizeofcmds))

	writeSegmentCommand(&buf, obj, textOff, cstringOff, relOff, hasCStrings, uint32(segCmdSize), fileSize)
	writeSymtabCommand(&buf, uint32(symOff), uint32(len(obj.Symbols)), uint32(strOff), uint32(len(strtab.bytes())))
	writeDysymtabCommand(&buf, uint32(len(obj.Symbols)))
	writeBuildVersionCommand(&buf)

	pad(&buf, textOff)
	buf.Write(obj.Code)
	if hasCStrings {
		pad(&buf, cstringOff)
		buf.Write(obj.CStrings)
	}

	pad(&buf, relOff)
	writeRelocations(&buf, obj.Relocs, obj.Symbols)

	pad(&buf, symOff)
	writeSymbols(&buf, obj.Symbols, nameOffsets)

	pad(&buf, strOff)
	buf.Write(strtab.bytes())

	return buf.Bytes(), nil
}

func pad(buf *bytes.Buffer, to uint64) {
	if uint64(buf.Len()) < to {
		buf.Write(make([]byte, to-uint64(buf.Len())))
	}
}

func writeMachHeader(buf *bytes.Buffer, cputype, cpusubtype, ncmds, sizeofcmds uint32) {
	binary.Write(buf, binary.LittleEndian, uint32(magic64))
	binary.Write(buf, binary.LittleEndian, cputype)
	binary.Write(buf, binary.LittleEndian, cpusubtype)
	binary.Write(buf, binary.LittleEndian, uint32(mhObject))
	binary.Write(buf, binary.LittleEndian, ncmds)
	binary.Write(buf, binary.LittleEndian, sizeofcmds)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // flags
	binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved
}

func writeSegname(buf *bytes.Buffer, name string) {
	var b [16]byte
	copy(b[:], name)
	buf.Write(b[:])
}

func writeSegmentCommand(buf *bytes.Buffer, obj Object, textOff, cstringOff, relOff uint64, hasCStrings bool, cmdsize uint32, fileSize uint64) {
	nsects := uint32(1)
	if hasCStrings {
		nsects = 2
	}
	binary.Write(buf, binary.LittleEndian, uint32(lcSegment64))
	binary.Write(buf, binary.LittleEndian, cmdsize)
	writeSegname(buf, "") // unnamed top-level segment, per a relocatable object
	binary.Write(buf, binary.LittleEndian, uint64(0)) // vmaddr
	binary.Write(buf, binary.LittleEndian, fileSize)  // vmsize
	binary.Write(buf, binary.LittleEndian, uint64(0)) // fileoff
	binary.Write(buf, binary.LittleEndian, fileSize)  // filesize
	binary.Write(buf, binary.LittleEndian, uint32(7)) // maxprot rwx
	binary.Write(buf, binary.LittleEndian, uint32(7)) // initprot
	binary.Write(buf, binary.LittleEndian, nsects)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // flags

	writeSection(buf, "__text", "__TEXT", textOff, uint64(len(obj.Code)), uint32(relOff), uint32(len(obj.Relocs)), 0x80000400 /* S_ATTR_SOME_INSTRUCTIONS|PURE_INSTRUCTIONS */)
	if hasCStrings {
		writeSection(buf, "__cstring", "__TEXT", cstringOff, uint64(len(obj.CStrings)), 0, 0, 0x2 /* S_CSTRING_LITERALS */)
	}
}

func writeSection(buf *bytes.Buffer, sectname, segname string, addr, size uint64, reloff, nreloc uint32, flags uint32) {
	var sn, gn [16]byte
	copy(sn[:], sectname)
	copy(gn[:], segname)
	buf.Write(sn[:])
	buf.Write(gn[:])
	binary.Write(buf, binary.LittleEndian, addr)
	binary.Write(buf, binary.LittleEndian, size)
	binary.Write(buf, binary.LittleEndian, uint32(addr)) // offset (flat file == addr here)
	binary.Write(buf, binary.LittleEndian, uint32(4))    // align (2^4 = 16)
	binary.Write(buf, binary.LittleEndian, reloff)
	binary.Write(buf, binary.LittleEndian, nreloc)
	binary.Write(buf, binary.LittleEndian, flags)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved1
	binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved2
	binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved3
}

func writeSymtabCommand(buf *bytes.Buffer, symoff, nsyms, stroff, strsize uint32) {
	binary.Write(buf, binary.LittleEndian, uint32(lcSymtab))
	binary.Write(buf, binary.LittleEndian, uint32(24))
	binary.Write(buf, binary.LittleEndian, symoff)
	binary.Write(buf, binary.LittleEndian, nsyms)
	binary.Write(buf, binary.LittleEndian, stroff)
	binary.Write(buf, binary.LittleEndian, strsize)
}

func writeDysymtabCommand(buf *bytes.Buffer, nsyms uint32) {
	binary.Write(buf, binary.LittleEndian, uint32(lcDysymtab))
	binary.Write(buf, binary.LittleEndian, uint32(80))
	// All symbols treated as a single "external defined" run; a relocatable
	// object under construction has no local/undefined split worth tracking.
	fields := []uint32{0, 0, 0, nsyms, nsyms, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	for _, f := range fields {
		binary.Write(buf, binary.LittleEndian, f)
	}
}

func writeBuildVersionCommand(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, uint32(lcBuildVersion))
	binary.Write(buf, binary.LittleEndian, uint32(32))
	binary.Write(buf, binary.LittleEndian, uint32(platformMacOS))
	binary.Write(buf, binary.LittleEndian, uint32(0x000e0000)) // minos 14.0.0
	binary.Write(buf, binary.LittleEndian, uint32(0x000e0000)) // sdk 14.0.0
	binary.Write(buf, binary.LittleEndian, uint32(1))          // ntools
	binary.Write(buf, binary.LittleEndian, uint32(3))          // TOOL_LD
	binary.Write(buf, binary.LittleEndian, uint32(0x00010000)) // tool version 1.0.0
}

func writeSymbols(buf *bytes.Buffer, syms []Symbol, nameOffsets []uint32) {
	for i, s := range syms {
		binary.Write(buf, binary.LittleEndian, nameOffsets[i])
		var typ, nsect byte
		if s.Undefined {
			typ = nUndf
		} else {
			typ = nSect
			nsect = textSection
			if s.CString {
				nsect = cstringSection
			}
		}
		if s.Global {
			typ |= nExt
		}
		buf.WriteByte(typ)
		buf.WriteByte(nsect)
		binary.Write(buf, binary.LittleEndian, uint16(0))
		binary.Write(buf, binary.LittleEndian, s.Value)
	}
}

// writeRelocations packs each entry into the explicit bit layout spec.md
// §4.7 calls for rather than relying on a Go bit-field struct's memory
// layout: bits 0-23 symbol number, 24 PC-relative, 25-26 length, 27
// external, 28-31 type. The symbol number is the entry's real position in
// the nlist table (syms, in the same order writeSymbols serialises them),
// not an ad-hoc counter over the relocations alone.
func writeRelocations(buf *bytes.Buffer, relocs []Relocation, syms []Symbol) {
	symIndex := make(map[string]uint32, len(syms))
	for i, s := range syms {
		symIndex[s.Name] = uint32(i)
	}
	for _, r := range relocs {
		idx := symIndex[r.Symbol]
		rInfo := (idx & 0xFFFFFF) | (1 << 24) /* pcrel */ | (2 << 25) /* length=4 bytes */ | (1 << 27) /* external */ | (machoRelocType(r.Kind) << 28)
		binary.Write(buf, binary.LittleEndian, int32(r.Offset))
		binary.Write(buf, binary.LittleEndian, rInfo)
	}
}

type stringTable struct {
	buf   bytes.Buffer
	cache map[string]uint32
}

func newStringTable() *stringTable {
	t := &stringTable{cache: make(map[string]uint32)}
	t.buf.WriteByte(0)
	return t
}

func (t *stringTable) add(s string) uint32 {
	if off, ok := t.cache[s]; ok {
		return off
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	t.cache[s] = off
	return off
}

func (t *stringTable) bytes() []byte { return t.buf.Bytes() }
