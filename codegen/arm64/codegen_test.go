package arm64

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"sox/ir"
)

func TestIntraModuleBranchCALL26PatchedNoRelocation(t *testing.T) {
	mod := &ir.Module{SourceFile: "test.sox"}

	g := ir.Function{Name: "g"}
	lg := g.NewLabel()
	blk := g.Block(lg)
	v := g.NewVReg()
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpConstInt, Dest: ir.Reg(v, ir.Size8), Src: [3]ir.Operand{ir.Const(int64(42), ir.Size8)}})
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpReturn, Src: [3]ir.Operand{ir.Reg(v, ir.Size8)}})

	f := ir.Function{Name: "f"}
	lf := f.NewLabel()
	blk2 := f.Block(lf)
	blk2.Instrs = append(blk2.Instrs, ir.Instr{Op: ir.OpCallFunc, Target: 0})
	blk2.Instrs = append(blk2.Instrs, ir.Instr{Op: ir.OpReturnVoid})

	mod.Functions = append(mod.Functions, g, f)

	gen := NewGenerator()
	require.NoError(t, gen.Generate(mod))
	require.Empty(t, gen.Relocations())
}

func TestExternalCallRecordsCALL26Relocation(t *testing.T) {
	mod := &ir.Module{SourceFile: "test.sox"}
	fn := ir.Function{Name: "main"}
	l := fn.NewLabel()
	blk := fn.Block(l)
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpCallSymbol, Symbol: "sox_native_print"})
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpReturnVoid})
	mod.Functions = append(mod.Functions, fn)

	gen := NewGenerator()
	require.NoError(t, gen.Generate(mod))
	require.Len(t, gen.Relocations(), 1)
	require.Equal(t, "sox_native_print", gen.Relocations()[0].Symbol)
}

func TestFramePaddedFrameSizeMultipleOf16(t *testing.T) {
	mod := &ir.Module{SourceFile: "test.sox"}
	fn := ir.Function{Name: "f"}
	l := fn.NewLabel()
	blk := fn.Block(l)
	v := fn.NewVReg()
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpConstInt, Dest: ir.Reg(v, ir.Size8), Src: [3]ir.Operand{ir.Const(int64(1), ir.Size8)}})
	blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpReturn, Src: [3]ir.Operand{ir.Reg(v, ir.Size8)}})
	mod.Functions = append(mod.Functions, fn)

	gen := NewGenerator()
	require.NoError(t, gen.Generate(mod))
	require.Len(t, gen.Layouts(), 1)

	// Prologue: STP FP/LR, MOV FP, then SUB SP, SP, #frame (no callee-saved
	// pair is pushed for a single value).
	at := (gen.Layouts()[0].InstrOffset + 2) * 4
	sub := binary.LittleEndian.Uint32(gen.Words()[at : at+4])
	require.Equal(t, uint32(0xD1000000), sub&0xFFC00000, "third prologue word is SUB (immediate)")
	require.Equal(t, uint32(0), (sub>>10&0xFFF)%16)
}
