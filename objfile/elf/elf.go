// Package elf writes minimal ELF64 relocatable object files: a .text
// section, an optional .rodata section, a symbol table, a string table, and
// an optional .rela.text, laid out in two passes (size/offset accounting,
// then serialisation to one owned buffer) before a single write (spec.md
// §4.7). Machine-type constants are the same ones the Linux kernel exposes
// through golang.org/x/sys/unix, so this package never hand-maintains its
// own copy of EM_X86_64/EM_AARCH64.
package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	elfClass64   = 2
	elfData2LSB  = 1
	elfOSABISysV = 0
	etREL        = 1
	evCurrent    = 1

	shtNull     = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtRela     = 4

	shfAlloc     = 0x2
	shfExecInstr = 0x4

	stbLocal  = 0
	stbGlobal = 1
	sttNotype = 0
	sttFunc   = 2

	rX86_64PLT32 = 4 // R_X86_64_PLT32
)

// Section indices a caller building an Object needs to reference directly
// when placing a Symbol: .text is always section 1, and .rodata (when
// present) always immediately follows at section 2.
const (
	TextSectionIndex   uint16 = 1
	RodataSectionIndex uint16 = 2
)

// Symbol is one entry destined for .symtab. SectionIndex is 0 for an
// undefined/external symbol, which the resolver later marks external.
type Symbol struct {
	Name         string
	Value        uint64
	Size         uint64
	Global       bool
	Func         bool
	SectionIndex uint16 // into the final section header table; 0 = undefined
}

// Relocation is one .rela.text entry: an R_X86_64_PLT32 reference to a named
// symbol with an explicit addend (spec.md §4.5/§4.7).
type Relocation struct {
	Offset uint64
	Symbol string
	Addend int64
}

// Object is the input to Write: the code and read-only-data bytes for one
// module, its symbol table, and any external relocations against .text.
type Object struct {
	Machine    uint16 // unix.EM_X86_64 or unix.EM_AARCH64
	Code       []byte
	RoData     []byte
	Symbols    []Symbol
	Relocs     []Relocation
}

// sectionLayout is this writer's two-pass accounting record: a section's
// name, file offset, and size, computed before any byte is serialised.
type sectionLayout struct {
	name   string
	offset uint64
	size   uint64
}

// Write serialises obj as a relocatable ELF64 object and writes it to path.
func Write(path string, obj Object) error {
	data, err := Build(obj)
	if err != nil {
		return fmt.Errorf("elf: build: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("elf: write %s: %w", path, err)
	}
	return nil
}

// Build runs the two-pass layout and returns the serialised object bytes.
func Build(obj Object) ([]byte, error) {
	if obj.Machine != unix.EM_X86_64 && obj.Machine != unix.EM_AARCH64 {
		return nil, fmt.Errorf("elf: unsupported machine type %d", obj.Machine)
	}

	strtab := newStringTable()
	shstrtab := newStringTable()

	symNameOffsets := make([]uint32, len(obj.Symbols))
	for i, s := range obj.Symbols {
		symNameOffsets[i] = strtab.add(s.Name)
	}

	hasRodata := len(obj.RoData) > 0
	hasRela := len(obj.Relocs) > 0

	// Section order: NULL, .text, [.rodata], .symtab, .strtab, [.rela.text], .shstrtab
	type secIdx struct{ text, rodata, symtab, strtab, rela, shstrtab uint16 }
	var idx secIdx
	next := uint16(1)
	idx.text = next
	next++
	if hasRodata {
		idx.rodata = next
		next++
	}
	idx.symtab = next
	next++
	idx.strtab = next
	next++
	if hasRela {
		idx.rela = next
		next++
	}
	idx.shstrtab = next
	next++
	numSections := next

	nameText := shstrtab.add(".text")
	var nameRodata uint32
	if hasRodata {
		nameRodata = shstrtab.add(".rodata")
	}
	nameSymtab := shstrtab.add(".symtab")
	nameStrtab := shstrtab.add(".strtab")
	var nameRela uint32
	if hasRela {
		nameRela = shstrtab.add(".rela.text")
	}
	nameShstrtab := shstrtab.add(".shstrtab")

	// Pass 1: size/offset accounting, 8-byte alignment before relocation and
	// symbol-table areas, 16-byte alignment before section payloads
	// (spec.md §4.7).
	off := uint64(64) // Ehdr size
	align := func(a uint64) { off = (off + a - 1) &^ (a - 1) }

	align(16)
	textOff := off
	off += uint64(len(obj.Code))

	var rodataOff uint64
	if hasRodata {
		align(16)
		rodataOff = off
		off += uint64(len(obj.RoData))
	}

	align(8)
	symtabOff := off
	// local symbols first (index 0 is always the null symbol)
	numLocal := 1
	for _, s := range obj.Symbols {
		if !s.Global {
			numLocal++
		}
	}
	symtabSize := uint64((len(obj.Symbols) + 1) * 24)
	off += symtabSize

	align(8)
	strtabOff := off
	off += uint64(len(strtab.bytes()))

	var relaOff uint64
	if hasRela {
		align(8)
		relaOff = off
		off += uint64(len(obj.Relocs) * 24)
	}

	align(8)
	shstrtabOff := off
	off += uint64(len(shstrtab.bytes()))

	align(8)
	shoff := off

	// Pass 2: serialise.
	var buf bytes.Buffer
	writeEhdr(&buf, obj.Machine, uint64(numSections), shoff, idx.shstrtab)

	buf.Write(padTo(obj.Code, textOff-64))
	if hasRodata {
		buf.Write(padTo(obj.RoData, rodataOff-uint64(buf.Len())))
	}

	pad(&buf, symtabOff)
	buf.Write(make([]byte, 24)) // null symbol
	// local symbols then global symbols, per ELF convention (st_info sorted).
	writeSymbols(&buf, obj.Symbols, symNameOffsets, false)
	writeSymbols(&buf, obj.Symbols, symNameOffsets, true)

	pad(&buf, strtabOff)
	buf.Write(strtab.bytes())

	if hasRela {
		pad(&buf, relaOff)
		writeRelas(&buf, obj.Relocs, obj.Symbols, numLocal)
	}

	pad(&buf, shstrtabOff)
	buf.Write(shstrtab.bytes())

	pad(&buf, shoff)
	writeShdr(&buf, 0, shtNull, 0, 0, 0, 0, 0, 0, 0, 0)
	writeShdr(&buf, nameText, shtProgbits, shfAlloc|shfExecInstr, 0, textOff, uint64(len(obj.Code)), 0, 0, 16, 0)
	if hasRodata {
		writeShdr(&buf, nameRodata, shtProgbits, shfAlloc, 0, rodataOff, uint64(len(obj.RoData)), 0, 0, 16, 0)
	}
	writeShdr(&buf, nameSymtab, shtSymtab, 0, 0, symtabOff, symtabSize, uint32(idx.strtab), uint32(numLocal), 8, 24)
	writeShdr(&buf, nameStrtab, shtStrtab, 0, 0, strtabOff, uint64(len(strtab.bytes())), 0, 0, 1, 0)
	if hasRela {
		writeShdr(&buf, nameRela, shtRela, 0, 0, relaOff, uint64(len(obj.Relocs)*24), uint32(idx.symtab), uint32(idx.text), 8, 24)
	}
	writeShdr(&buf, nameShstrtab, shtStrtab, 0, 0, shstrtabOff, uint64(len(shstrtab.bytes())), 0, 0, 1, 0)

	return buf.Bytes(), nil
}

func pad(buf *bytes.Buffer, to uint64) {
	if uint64(buf.Len()) < to {
		buf.Write(make([]byte, to-uint64(buf.Len())))
	}
}

func padTo(data []byte, gap uint64) []byte {
	if gap == 0 {
		return data
	}
	out := make([]byte, gap)
	return append(out, data...)
}

func writeEhdr(buf *bytes.Buffer, machine uint16, shnum uint64, shoff uint64, shstrndx uint16) {
	var ident [16]byte
	ident[0] = 0x7f
	ident[1] = 'E'
	ident[2] = 'L'
	ident[3] = 'F'
	ident[4] = elfClass64
	ident[5] = elfData2LSB
	ident[6] = evCurrent
	ident[7] = elfOSABISysV
	buf.Write(ident[:])
	binary.Write(buf, binary.LittleEndian, uint16(etREL))
	binary.Write(buf, binary.LittleEndian, machine)
	binary.Write(buf, binary.LittleEndian, uint32(evCurrent))
	binary.Write(buf, binary.LittleEndian, uint64(0)) // e_entry
	binary.Write(buf, binary.LittleEndian, uint64(0)) // e_phoff
	binary.Write(buf, binary.LittleEndian, shoff)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // e_flags
	binary.Write(buf, binary.LittleEndian, uint16(64)) // e_ehsize
	binary.Write(buf, binary.LittleEndian, uint16(0))  // e_phentsize
	binary.Write(buf, binary.LittleEndian, uint16(0))  // e_phnum
	binary.Write(buf, binary.LittleEndian, uint16(64)) // e_shentsize
	binary.Write(buf, binary.LittleEndian, uint16(shnum))
	binary.Write(buf, binary.LittleEndian, shstrndx)
}

func writeShdr(buf *bytes.Buffer, name uint32, typ uint32, flags, addr, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	binary.Write(buf, binary.LittleEndian, name)
	binary.Write(buf, binary.LittleEndian, typ)
	binary.Write(buf, binary.LittleEndian, flags)
	binary.Write(buf, binary.LittleEndian, addr)
	binary.Write(buf, binary.LittleEndian, offset)
	binary.Write(buf, binary.LittleEndian, size)
	binary.Write(buf, binary.LittleEndian, link)
	binary.Write(buf, binary.LittleEndian, info)
	binary.Write(buf, binary.LittleEndian, addralign)
	binary.Write(buf, binary.LittleEndian, entsize)
}

func writeSymbols(buf *bytes.Buffer, syms []Symbol, nameOffsets []uint32, global bool) {
	for i, s := range syms {
		if s.Global != global {
			continue
		}
		bind := byte(stbLocal)
		if s.Global {
			bind = stbGlobal
		}
		typ := byte(sttNotype)
		if s.Func {
			typ = sttFunc
		}
		binary.Write(buf, binary.LittleEndian, nameOffsets[i])
		buf.WriteByte(bind<<4 | typ)
		buf.WriteByte(0) // st_other
		binary.Write(buf, binary.LittleEndian, s.SectionIndex)
		binary.Write(buf, binary.LittleEndian, s.Value)
		binary.Write(buf, binary.LittleEndian, s.Size)
	}
}

func writeRelas(buf *bytes.Buffer, relocs []Relocation, syms []Symbol, numLocal int) {
	symIndex := make(map[string]uint64, len(syms))
	li, gi := uint64(1), uint64(numLocal)
	for _, s := range syms {
		if s.Global {
			symIndex[s.Name] = gi
			gi++
		} else {
			symIndex[s.Name] = li
			li++
		}
	}
	for _, r := range relocs {
		idx, ok := symIndex[r.Symbol]
		if !ok {
			// External runtime symbol with no local definition: the resolver
			// allow-list supplies it, so the writer still needs an undefined
			// entry; callers are expected to have added one via Symbol.
			idx = 0
		}
		rInfo := idx<<32 | uint64(rX86_64PLT32)
		binary.Write(buf, binary.LittleEndian, r.Offset)
		binary.Write(buf, binary.LittleEndian, rInfo)
		binary.Write(buf, binary.LittleEndian, r.Addend)
	}
}

// stringTable is a growable ELF string table: byte 0 is always NUL, and
// add() returns the offset of the newly appended (or reused) name.
type stringTable struct {
	buf    bytes.Buffer
	cache  map[string]uint32
}

func newStringTable() *stringTable {
	t := &stringTable{cache: make(map[string]uint32)}
	t.buf.WriteByte(0)
	return t
}

func (t *stringTable) add(s string) uint32 {
	if s == "" {
		return 0
	}
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
