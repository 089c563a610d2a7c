// Package arm64 implements the fixed-width 32-bit AArch64 instruction
// encoder used by codegen/arm64 (spec.md §4.4). Instruction offsets the
// encoder hands out (CurrentInstr, Reloc.InstrOffset) are expressed in
// instruction counts, not bytes; sox's codegenFor multiplies them by four
// before they reach the byte-indexed object writers.
package arm64

import "fmt"

// Reg is an AArch64 general-purpose register number, 0 (X0) through 30
// (X30/LR), with 31 meaning SP or XZR depending on instruction context.
type Reg int

const (
	X0  Reg = 0
	X1  Reg = 1
	X2  Reg = 2
	X3  Reg = 3
	X4  Reg = 4
	X5  Reg = 5
	X6  Reg = 6
	X7  Reg = 7
	X8  Reg = 8
	X9  Reg = 9
	X10 Reg = 10
	X11 Reg = 11
	X12 Reg = 12
	X13 Reg = 13
	X14 Reg = 14
	X15 Reg = 15
	X19 Reg = 19
	X20 Reg = 20
	X21 Reg = 21
	X22 Reg = 22
	X23 Reg = 23
	X24 Reg = 24
	X25 Reg = 25
	X26 Reg = 26
	X27 Reg = 27
	X28 Reg = 28
	X29 Reg = 29 // frame pointer
	X30 Reg = 30 // link register
	SP  Reg = 31
	XZR Reg = 31
)

// Cond is an AArch64 condition code for B.cond / CSEL / CSET.
type Cond byte

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondGE Cond = 0xA
	CondLT Cond = 0xB
	CondGT Cond = 0xC
	CondLE Cond = 0xD
)

// RelocKind is one of the ARM64 relocation kinds the code generator records
// against the external symbol table (spec.md §4.4).
type RelocKind int

const (
	RelocCALL26 RelocKind = iota
	RelocJUMP26
	RelocADRPrelPgHi21
	RelocAddAbsLo12NC
)

// Reloc is one deferred patch the encoder could not resolve itself: an
// external symbol reference recorded at a given instruction offset.
type Reloc struct {
	InstrOffset int // instruction index, not byte offset
	Kind        RelocKind
	Symbol      string
	Addend      int64
}

// Encoder owns a growable 32-bit-word code buffer (stored as little-endian
// bytes) and the relocation list the code generator consults after
// emission.
type Encoder struct {
	code []byte
	Relocs []Reloc
}

func New() *Encoder { return &Encoder{code: make([]byte, 0, 1024)} }

func (e *Encoder) Bytes() []byte { return e.code }

// CurrentInstr returns the instruction index the next emitted word will
// occupy.
func (e *Encoder) CurrentInstr() int { return len(e.code) / 4 }

func (e *Encoder) emit32(instr uint32) {
	e.code = append(e.code,
		byte(instr), byte(instr>>8), byte(instr>>16), byte(instr>>24))
}

// AddReloc records an external-symbol relocation at the instruction about to
// be emitted.
func (e *Encoder) AddReloc(kind RelocKind, symbol string, addend int64) {
	e.Relocs = append(e.Relocs, Reloc{InstrOffset: e.CurrentInstr(), Kind: kind, Symbol: symbol, Addend: addend})
}

// --- Moves ---

// Movz emits MOVZ dst, #imm16, LSL #(shift*16) (64-bit).
func (e *Encoder) Movz(dst Reg, imm16 uint16, shift uint) {
	e.emit32(0x80000000 | 0x52800000 | uint32(shift&3)<<21 | uint32(imm16)<<5 | uint32(dst))
}

// Movk emits MOVK dst, #imm16, LSL #(shift*16) (64-bit), preserving other bits.
func (e *Encoder) Movk(dst Reg, imm16 uint16, shift uint) {
	e.emit32(0x80000000 | 0x72800000 | uint32(shift&3)<<21 | uint32(imm16)<<5 | uint32(dst))
}

// MovReg emits MOV dst, src as ORR dst, XZR, src.
func (e *Encoder) MovReg(dst, src Reg) {
	e.emit32(0xAA0003E0 | uint32(src)<<16 | uint32(dst))
}

// MovImm64 materialises an arbitrary 64-bit constant via one MOVZ and up to
// three MOVK instructions, skipping all-zero chunks beyond the first.
func (e *Encoder) MovImm64(dst Reg, imm uint64) {
	e.Movz(dst, uint16(imm), 0)
	for shift := uint(1); shift < 4; shift++ {
		chunk := uint16(imm >> (shift * 16))
		if chunk != 0 {
			e.Movk(dst, chunk, shift)
		}
	}
}

// --- Memory ---

// LdrImm emits LDR dst, [base, #imm12*8] (64-bit unsigned scaled offset).
func (e *Encoder) LdrImm(dst, base Reg, imm12 uint16) {
	e.emit32(0xF9400000 | uint32(imm12&0xFFF)<<10 | uint32(base)<<5 | uint32(dst))
}

// StrImm emits STR src, [base, #imm12*8].
func (e *Encoder) StrImm(src, base Reg, imm12 uint16) {
	e.emit32(0xF9000000 | uint32(imm12&0xFFF)<<10 | uint32(base)<<5 | uint32(src))
}

// StpPre emits STP r1, r2, [base, #imm7*8]! (pre-indexed, writeback).
func (e *Encoder) StpPre(r1, r2, base Reg, imm7 int) {
	e.emit32(0xA9800000 | (uint32(imm7)&0x7F)<<15 | uint32(r2)<<10 | uint32(base)<<5 | uint32(r1))
}

// LdpPost emits LDP r1, r2, [base], #imm7*8 (post-indexed, writeback).
func (e *Encoder) LdpPost(r1, r2, base Reg, imm7 int) {
	e.emit32(0xA8C00000 | (uint32(imm7)&0x7F)<<15 | uint32(r2)<<10 | uint32(base)<<5 | uint32(r1))
}

// --- Arithmetic ---

func (e *Encoder) AddRegReg(dst, a, b Reg) {
	e.emit32(0x8B000000 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) SubRegReg(dst, a, b Reg) {
	e.emit32(0xCB000000 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) Mul(dst, a, b Reg) {
	e.emit32(0x9B007C00 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) Sdiv(dst, a, b Reg) {
	e.emit32(0x9AC00C00 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) Neg(dst, src Reg) {
	e.emit32(0xCB0003E0 | uint32(src)<<16 | uint32(dst))
}

// AddImm12 emits ADD dst, src, #imm12 (unsigned 12-bit immediate form).
func (e *Encoder) AddImm12(dst, src Reg, imm12 uint16) {
	e.emit32(0x91000000 | uint32(imm12&0xFFF)<<10 | uint32(src)<<5 | uint32(dst))
}

// SubImm12 emits SUB dst, src, #imm12.
func (e *Encoder) SubImm12(dst, src Reg, imm12 uint16) {
	e.emit32(0xD1000000 | uint32(imm12&0xFFF)<<10 | uint32(src)<<5 | uint32(dst))
}

// --- Logical ---

func (e *Encoder) AndRegReg(dst, a, b Reg) {
	e.emit32(0x8A000000 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) OrrRegReg(dst, a, b Reg) {
	e.emit32(0xAA000000 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) EorRegReg(dst, a, b Reg) {
	e.emit32(0xCA000000 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) Mvn(dst, src Reg) {
	e.emit32(0xAA2003E0 | uint32(src)<<16 | uint32(dst))
}

// LslImm/LsrImm emit immediate logical shifts via the UBFM alias encodings.
func (e *Encoder) LslImm(dst, src Reg, shift uint) {
	immr := (64 - shift) & 63
	imms := 63 - shift
	e.emit32(0xD3400000 | uint32(immr)<<16 | uint32(imms)<<10 | uint32(src)<<5 | uint32(dst))
}

func (e *Encoder) LsrImm(dst, src Reg, shift uint) {
	e.emit32(0xD340FC00 | uint32(shift&63)<<16 | uint32(src)<<5 | uint32(dst))
}

// --- Compare / select ---

// CmpReg emits CMP a, b as SUBS XZR, a, b.
func (e *Encoder) CmpReg(a, b Reg) {
	e.emit32(0xEB00001F | uint32(b)<<16 | uint32(a)<<5)
}

// CmpImm emits CMP a, #imm12 as SUBS XZR, a, #imm12.
func (e *Encoder) CmpImm(a Reg, imm12 uint16) {
	e.emit32(0xF100001F | uint32(imm12&0xFFF)<<10 | uint32(a)<<5)
}

// TstReg emits TST a, b as ANDS XZR, a, b.
func (e *Encoder) TstReg(a, b Reg) {
	e.emit32(0xEA00001F | uint32(b)<<16 | uint32(a)<<5)
}

// Csel emits CSEL dst, a, b, cond: dst = cond ? a : b.
func (e *Encoder) Csel(dst, a, b Reg, cond Cond) {
	e.emit32(0x9A800000 | uint32(b)<<16 | uint32(cond)<<12 | uint32(a)<<5 | uint32(dst))
}

// Cset emits CSET dst, cond: dst = cond ? 1 : 0, as CSINC dst, XZR, XZR, !cond.
func (e *Encoder) Cset(dst Reg, cond Cond) {
	inverted := cond ^ 1
	e.emit32(0x9A9F07E0 | uint32(inverted)<<12 | uint32(dst))
}

// --- Control flow ---

// B emits an unconditional branch with a placeholder 26-bit offset and
// returns the instruction index the branch was emitted at, for later
// patching (spec.md §4.6).
func (e *Encoder) B() (instrIdx int) {
	instrIdx = e.CurrentInstr()
	e.emit32(0x14000000)
	return instrIdx
}

// Bl emits branch-with-link, same patch contract as B.
func (e *Encoder) Bl() (instrIdx int) {
	instrIdx = e.CurrentInstr()
	e.emit32(0x94000000)
	return instrIdx
}

// BCond emits B.cond with a placeholder 19-bit offset.
func (e *Encoder) BCond(cond Cond) (instrIdx int) {
	instrIdx = e.CurrentInstr()
	e.emit32(0x54000000 | uint32(cond))
	return instrIdx
}

// Br/Blr emit register-indirect branches.
func (e *Encoder) Br(r Reg)  { e.emit32(0xD61F0000 | uint32(r)<<5) }
func (e *Encoder) Blr(r Reg) { e.emit32(0xD63F0000 | uint32(r)<<5) }

// Ret emits RET through LR (X30).
func (e *Encoder) Ret() { e.emit32(0xD65F0000 | uint32(X30)<<5) }

// Adrp emits ADRP dst, #0 with a placeholder page-relative immediate and
// returns its instruction index. It records no relocation itself; the
// caller records the ADR_PREL_PG_HI21 relocation.
func (e *Encoder) Adrp(dst Reg) (instrIdx int) {
	instrIdx = e.CurrentInstr()
	e.emit32(0x90000000 | uint32(dst))
	return instrIdx
}

// AddImm12Lo12 emits ADD dst, src, #0 with a placeholder page-offset
// immediate, for pairing with Adrp (ADD_ABS_LO12_NC).
func (e *Encoder) AddImm12Lo12(dst, src Reg) (instrIdx int) {
	instrIdx = e.CurrentInstr()
	e.emit32(0x91000000 | uint32(src)<<5 | uint32(dst))
	return instrIdx
}

// --- SIMD/float ---

// Vreg is a V-register number, 0-31.
type Vreg int

func (e *Encoder) FaddD(dst, a, b Vreg) {
	e.emit32(0x1E602800 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) FsubD(dst, a, b Vreg) {
	e.emit32(0x1E603800 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) FmulD(dst, a, b Vreg) {
	e.emit32(0x1E600800 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

func (e *Encoder) FdivD(dst, a, b Vreg) {
	e.emit32(0x1E601800 | uint32(b)<<16 | uint32(a)<<5 | uint32(dst))
}

// Scvtf emits SCVTF Dd, Xn (signed integer to double).
func (e *Encoder) Scvtf(dst Vreg, src Reg) {
	e.emit32(0x9E620000 | uint32(src)<<5 | uint32(dst))
}

// Fcvtzs emits FCVTZS Xd, Dn (double to signed integer, round toward zero).
func (e *Encoder) Fcvtzs(dst Reg, src Vreg) {
	e.emit32(0x9E780000 | uint32(src)<<5 | uint32(dst))
}

// --- Patching ---

// PatchB26 writes a 26-bit word-granularity displacement into the B/BL
// instruction at instrIdx so that it targets targetInstr.
func (e *Encoder) PatchB26(instrIdx, targetInstr int) error {
	disp := targetInstr - instrIdx
	if disp < -(1<<25) || disp >= (1<<25) {
		return fmt.Errorf("arm64: branch displacement %d does not fit in 26 bits", disp)
	}
	off := instrIdx * 4
	instr := le32(e.code[off:])
	instr = (instr &^ 0x03FFFFFF) | (uint32(disp) & 0x03FFFFFF)
	putLE32(e.code[off:], instr)
	return nil
}

// PatchBCond19 writes a 19-bit word-granularity displacement into the
// B.cond instruction at instrIdx.
func (e *Encoder) PatchBCond19(instrIdx, targetInstr int) error {
	disp := targetInstr - instrIdx
	if disp < -(1<<18) || disp >= (1<<18) {
		return fmt.Errorf("arm64: conditional branch displacement %d does not fit in 19 bits", disp)
	}
	off := instrIdx * 4
	instr := le32(e.code[off:])
	instr = (instr &^ (0x7FFFF << 5)) | ((uint32(disp) & 0x7FFFF) << 5)
	putLE32(e.code[off:], instr)
	return nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
