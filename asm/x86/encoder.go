// Package x86 implements the byte-level x86-64 (System V) instruction
// encoder used by codegen/x86 (spec.md §4.3). Every emitter appends bytes to
// the owned code buffer and is the unique writer of it; CurrentOffset
// returned before an emission point always addresses the first byte of the
// yet-to-be-emitted instruction.
package x86

import "fmt"

// Reg is an x86-64 general-purpose register number, 0 (RAX) through 15 (R15).
type Reg int

const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
	R8  Reg = 8
	R9  Reg = 9
	R10 Reg = 10
	R11 Reg = 11
	R12 Reg = 12
	R13 Reg = 13
	R14 Reg = 14
	R15 Reg = 15
)

// Cond is a condition code for SETcc / Jcc.
type Cond byte

const (
	CondE  Cond = 0x4 // equal / zero
	CondNE Cond = 0x5
	CondL  Cond = 0xC
	CondLE Cond = 0xE
	CondG  Cond = 0xF
	CondGE Cond = 0xD
)

// Encoder owns a growable code buffer and emits one instruction at a time.
type Encoder struct {
	code []byte
}

// New returns an empty encoder.
func New() *Encoder { return &Encoder{code: make([]byte, 0, 256)} }

// Bytes returns the accumulated code buffer.
func (e *Encoder) Bytes() []byte { return e.code }

// CurrentOffset returns the offset the next emitted byte will occupy.
func (e *Encoder) CurrentOffset() int { return len(e.code) }

func (e *Encoder) emit(bs ...byte) { e.code = append(e.code, bs...) }

func (e *Encoder) emit32(v int32) {
	e.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Encoder) emit64(v uint64) {
	for i := 0; i < 8; i++ {
		e.emit(byte(v >> (8 * i)))
	}
}

// rex builds a REX prefix byte, setting W when w is true (64-bit operand
// size, spec.md §4.3) and R/X/B when the corresponding register numbers are
// >= 8.
func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrm(mod, reg, rm byte) byte { return mod<<6 | (reg&7)<<3 | (rm & 7) }

func hi(r Reg) bool { return r >= 8 }

// --- Data move ---

// MovRegReg emits MOV dst, src (REX.W + 0x89 /r): dst <- src.
func (e *Encoder) MovRegReg(dst, src Reg) {
	e.emit(rex(true, hi(src), false, hi(dst)), 0x89, modrm(3, byte(src), byte(dst)))
}

// MovRegImm64 emits a 10-byte REX.W + B8+rd io absolute 64-bit move.
func (e *Encoder) MovRegImm64(dst Reg, imm uint64) {
	e.emit(rex(true, false, false, hi(dst)), 0xB8+byte(dst)&7)
	e.emit64(imm)
}

// MovRegImm32 emits a 7-byte REX.W + C7 /0 id sign-extended 32-bit move.
func (e *Encoder) MovRegImm32(dst Reg, imm int32) {
	e.emit(rex(true, false, false, hi(dst)), 0xC7, modrm(3, 0, byte(dst)))
	e.emit32(imm)
}

// XorRegReg emits a 3-byte REX.W XOR dst, dst idiom used to zero a register
// for the Sox nil literal.
func (e *Encoder) XorRegReg(dst, src Reg) {
	e.emit(rex(true, hi(src), false, hi(dst)), 0x31, modrm(3, byte(src), byte(dst)))
}

func (e *Encoder) memOperand(reg byte, base Reg, disp int32) {
	needsSIB := base&7 == 4 // RSP/R12 require a SIB byte
	switch {
	case disp == 0 && base&7 != 5: // RBP/R13 can't use mod00 (would mean RIP-rel/no-base)
		e.emit(modrm(0, reg, byte(base)))
		if needsSIB {
			e.emit(0x24)
		}
	case disp >= -128 && disp <= 127:
		e.emit(modrm(1, reg, byte(base)))
		if needsSIB {
			e.emit(0x24)
		}
		e.emit(byte(disp))
	default:
		e.emit(modrm(2, reg, byte(base)))
		if needsSIB {
			e.emit(0x24)
		}
		e.emit32(disp)
	}
}

// MovRegFromMem emits MOV dst, [base+disp] (REX.W + 0x8B /r).
func (e *Encoder) MovRegFromMem(dst, base Reg, disp int32) {
	e.emit(rex(true, hi(dst), false, hi(base)), 0x8B)
	e.memOperand(byte(dst), base, disp)
}

// MovMemFromReg emits MOV [base+disp], src (REX.W + 0x89 /r).
func (e *Encoder) MovMemFromReg(base Reg, disp int32, src Reg) {
	e.emit(rex(true, hi(src), false, hi(base)), 0x89)
	e.memOperand(byte(src), base, disp)
}

// Lea emits LEA dst, [base+disp] (REX.W + 0x8D /r).
func (e *Encoder) Lea(dst, base Reg, disp int32) {
	e.emit(rex(true, hi(dst), false, hi(base)), 0x8D)
	e.memOperand(byte(dst), base, disp)
}

// LeaRipRel emits LEA dst, [rip+disp32] (REX.W + 0x8D /r, mod=00 rm=101)
// with a placeholder displacement and returns the offset of that 4-byte
// field, for the caller to record as a PC-relative relocation once the
// target symbol is known (spec.md EXPANSION C: rodata string references).
func (e *Encoder) LeaRipRel(dst Reg) (dispOffset int) {
	e.emit(rex(true, hi(dst), false, false), 0x8D, modrm(0, byte(dst), 5))
	dispOffset = e.CurrentOffset()
	e.emit32(0)
	return dispOffset
}

// --- Arithmetic / logical register-register ---

const (
	aluAdd byte = 0x01
	aluOr  byte = 0x09
	aluAnd byte = 0x21
	aluSub byte = 0x29
	aluXor byte = 0x31
	aluCmp byte = 0x39
)

func (e *Encoder) aluRegReg(op byte, dst, src Reg) {
	e.emit(rex(true, hi(src), false, hi(dst)), op, modrm(3, byte(src), byte(dst)))
}

func (e *Encoder) AddRegReg(dst, src Reg) { e.aluRegReg(aluAdd, dst, src) }
func (e *Encoder) SubRegReg(dst, src Reg) { e.aluRegReg(aluSub, dst, src) }
func (e *Encoder) AndRegReg(dst, src Reg) { e.aluRegReg(aluAnd, dst, src) }
func (e *Encoder) OrRegReg(dst, src Reg)  { e.aluRegReg(aluOr, dst, src) }
func (e *Encoder) XorRegRegOp(dst, src Reg) { e.aluRegReg(aluXor, dst, src) }
func (e *Encoder) CmpRegReg(a, b Reg)     { e.aluRegReg(aluCmp, a, b) }

// aluImm reg group: /0 ADD /1 OR /4 AND /5 SUB /7 CMP, via 0x81 /n id32 or
// the sign-extended-8-bit optimisation 0x83 /n ib when the immediate fits.
func (e *Encoder) aluRegImm(ext byte, dst Reg, imm int32) {
	if imm >= -128 && imm <= 127 {
		e.emit(rex(true, false, false, hi(dst)), 0x83, modrm(3, ext, byte(dst)), byte(imm))
		return
	}
	e.emit(rex(true, false, false, hi(dst)), 0x81, modrm(3, ext, byte(dst)))
	e.emit32(imm)
}

func (e *Encoder) AddRegImm(dst Reg, imm int32) { e.aluRegImm(0, dst, imm) }
func (e *Encoder) SubRegImm(dst Reg, imm int32) { e.aluRegImm(5, dst, imm) }
func (e *Encoder) AndRegImm(dst Reg, imm int32) { e.aluRegImm(4, dst, imm) }
func (e *Encoder) OrRegImm(dst Reg, imm int32)  { e.aluRegImm(1, dst, imm) }
func (e *Encoder) CmpRegImm(dst Reg, imm int32) { e.aluRegImm(7, dst, imm) }

// ImulRegReg emits IMUL dst, src (0F AF /r): dst <- dst * src.
func (e *Encoder) ImulRegReg(dst, src Reg) {
	e.emit(rex(true, hi(dst), false, hi(src)), 0x0F, 0xAF, modrm(3, byte(dst), byte(src)))
}

// Cqo emits the RDX:RAX sign-extension used before IDIV.
func (e *Encoder) Cqo() { e.emit(rex(true, false, false, false), 0x99) }

// IdivReg emits IDIV src (F7 /7): RDX:RAX / src -> RAX=quot, RDX=rem.
func (e *Encoder) IdivReg(src Reg) {
	e.emit(rex(true, false, false, hi(src)), 0xF7, modrm(3, 7, byte(src)))
}

// NegReg emits NEG dst (F7 /3).
func (e *Encoder) NegReg(dst Reg) {
	e.emit(rex(true, false, false, hi(dst)), 0xF7, modrm(3, 3, byte(dst)))
}

// NotReg emits NOT dst (F7 /2).
func (e *Encoder) NotReg(dst Reg) {
	e.emit(rex(true, false, false, hi(dst)), 0xF7, modrm(3, 2, byte(dst)))
}

// ShlRegImm/ShrRegImm/SarRegImm emit C1 /n ib shifts by an immediate count.
func (e *Encoder) ShlRegImm(dst Reg, count byte) { e.shiftImm(4, dst, count) }
func (e *Encoder) ShrRegImm(dst Reg, count byte) { e.shiftImm(5, dst, count) }
func (e *Encoder) SarRegImm(dst Reg, count byte) { e.shiftImm(7, dst, count) }

func (e *Encoder) shiftImm(ext byte, dst Reg, count byte) {
	e.emit(rex(true, false, false, hi(dst)), 0xC1, modrm(3, ext, byte(dst)), count)
}

// TestRegReg emits TEST a, b (0x85 /r).
func (e *Encoder) TestRegReg(a, b Reg) {
	e.emit(rex(true, hi(b), false, hi(a)), 0x85, modrm(3, byte(b), byte(a)))
}

// SetccReg emits SETcc on the low byte of dst, zero-extended into dst by
// the caller via MovzxReg8.
func (e *Encoder) SetccReg(cond Cond, dst Reg) {
	e.emit(rex(false, false, false, hi(dst)), 0x0F, 0x90+byte(cond), modrm(3, 0, byte(dst)))
}

// MovzxReg8 emits MOVZX dst, dst_low8 (REX.W + 0F B6 /r), zero-extending the
// byte SETcc wrote into a full 64-bit value.
func (e *Encoder) MovzxReg8(dst Reg) {
	e.emit(rex(true, hi(dst), false, hi(dst)), 0x0F, 0xB6, modrm(3, byte(dst), byte(dst)))
}

// PushReg / PopReg emit single-byte-opcode push/pop (50+rd / 58+rd).
func (e *Encoder) PushReg(r Reg) {
	if hi(r) {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0x50 + byte(r)&7)
}

func (e *Encoder) PopReg(r Reg) {
	if hi(r) {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0x58 + byte(r)&7)
}

// --- Control flow ---

// JmpRel32 emits an unconditional near jump with a placeholder 0 32-bit
// displacement and returns the offset of that displacement field, for the
// caller to patch later (spec.md §4.5).
func (e *Encoder) JmpRel32() (dispOffset int) {
	e.emit(0xE9)
	dispOffset = e.CurrentOffset()
	e.emit32(0)
	return dispOffset
}

// JccRel32 emits a conditional near jump, same patch contract as JmpRel32.
func (e *Encoder) JccRel32(cond Cond) (dispOffset int) {
	e.emit(0x0F, 0x80+byte(cond))
	dispOffset = e.CurrentOffset()
	e.emit32(0)
	return dispOffset
}

// CallRel32 emits a direct 32-bit PC-relative call with a placeholder
// displacement and returns (instrOffset, dispOffset): instrOffset addresses
// the 0xE8 opcode byte (needed for the PLT32 relocation's call_offset+1
// convention), dispOffset the displacement field itself.
func (e *Encoder) CallRel32() (instrOffset, dispOffset int) {
	instrOffset = e.CurrentOffset()
	e.emit(0xE8)
	dispOffset = e.CurrentOffset()
	e.emit32(0)
	return instrOffset, dispOffset
}

// CallIndirect emits CALL r/m64 (FF /2) through a register.
func (e *Encoder) CallIndirect(r Reg) {
	e.emit(rex(false, false, false, hi(r)), 0xFF, modrm(3, 2, byte(r)))
}

// Ret emits a near return.
func (e *Encoder) Ret() { e.emit(0xC3) }

// PatchRel32 writes target-patchOffset-4 as the little-endian displacement
// at dispOffset, per the x86-64 "disp = target - (patch_offset+4)" rule
// (spec.md §4.5, §8 invariant 2).
func (e *Encoder) PatchRel32(dispOffset, target int) error {
	disp := int64(target) - int64(dispOffset+4)
	if disp < -(1 << 31) || disp >= (1<<31) {
		return fmt.Errorf("x86: relative displacement %d does not fit in 32 bits", disp)
	}
	v := int32(disp)
	e.code[dispOffset] = byte(v)
	e.code[dispOffset+1] = byte(v >> 8)
	e.code[dispOffset+2] = byte(v >> 16)
	e.code[dispOffset+3] = byte(v >> 24)
	return nil
}

// --- SSE2 double-precision arithmetic ---

// XMM is an SSE register number, 0-15.
type XMM int

func (e *Encoder) sse2(op byte, dst XMM, src XMM) {
	e.emit(0xF2)
	if hi(Reg(dst)) || hi(Reg(src)) {
		e.emit(rex(false, hi(Reg(dst)), false, hi(Reg(src))))
	}
	e.emit(0x0F, op, modrm(3, byte(dst), byte(src)))
}

func (e *Encoder) AddsdRegReg(dst, src XMM) { e.sse2(0x58, dst, src) }
func (e *Encoder) SubsdRegReg(dst, src XMM) { e.sse2(0x5C, dst, src) }
func (e *Encoder) MulsdRegReg(dst, src XMM) { e.sse2(0x59, dst, src) }
func (e *Encoder) DivsdRegReg(dst, src XMM) { e.sse2(0x5E, dst, src) }
