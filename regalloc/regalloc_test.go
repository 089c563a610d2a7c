package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sox/ir"
)

// tinyISA mimics x86-64's allocatable set at a small scale for fast tests:
// three registers, two of which are callee-saved.
var tinyISA = ISA{
	Name:        "tiny",
	Allocatable: []PhysReg{0, 1, 2},
	CalleeSaved: map[PhysReg]bool{1: true, 2: true},
}

var pairISA = ISA{
	Name:        "tiny-paired",
	Allocatable: []PhysReg{0, 1, 2, 3},
	CalleeSaved: map[PhysReg]bool{},
	Pairs:       true,
}

func straightLineFunc(nRegs int, size ir.Size) *ir.Function {
	fn := &ir.Function{}
	l := fn.NewLabel()
	blk := fn.Block(l)
	defs := make([]ir.VReg, nRegs)
	for i := 0; i < nRegs; i++ {
		v := fn.NewVReg()
		defs[i] = v
		blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpConstInt, Dest: ir.Reg(v, size)})
	}
	// Keep every register live until the end with a return-like use.
	for _, v := range defs {
		blk.Instrs = append(blk.Instrs, ir.Instr{Op: ir.OpReturn, Src: [3]ir.Operand{ir.Reg(v, size)}})
	}
	return fn
}

func TestAllocateWithinBudget(t *testing.T) {
	fn := straightLineFunc(2, ir.Size8)
	res, err := Allocate(fn, tinyISA)
	require.NoError(t, err)
	require.Equal(t, 0, res.SpillCount)
}

func TestAllocateSpillsWhenExhausted(t *testing.T) {
	fn := straightLineFunc(5, ir.Size8)
	res, err := Allocate(fn, tinyISA)
	require.NoError(t, err)
	require.Equal(t, 2, res.SpillCount, "3 physical regs, 5 simultaneously live values")
}

func TestSpillSlotsAreDistinctFromPhysicalAssignment(t *testing.T) {
	fn := straightLineFunc(5, ir.Size8)
	res, err := Allocate(fn, tinyISA)
	require.NoError(t, err)
	for bi := range fn.Blocks {
		for _, in := range fn.Blocks[bi].Instrs {
			if in.Op != ir.OpConstInt {
				continue
			}
			v := in.Dest.Reg
			_, hasReg := res.RegisterFor(v)
			_, hasSlot := res.SpillOffset(v)
			require.NotEqual(t, hasReg, hasSlot, "never both")
			require.True(t, hasReg || hasSlot)
		}
	}
}

func TestPairedAllocationAdjacency(t *testing.T) {
	fn := straightLineFunc(2, ir.Size16)
	res, err := Allocate(fn, pairISA)
	require.NoError(t, err)
	for bi := range fn.Blocks {
		for _, in := range fn.Blocks[bi].Instrs {
			if in.Op != ir.OpConstInt {
				continue
			}
			v := in.Dest.Reg
			lo, ok := res.RegisterFor(v)
			require.True(t, ok)
			hi, ok := res.HighRegisterFor(v)
			require.True(t, ok)
			require.Equal(t, lo+1, hi)
		}
	}
}

func TestCalleeSavedTrackedWhenPicked(t *testing.T) {
	fn := straightLineFunc(3, ir.Size8)
	res, err := Allocate(fn, tinyISA)
	require.NoError(t, err)
	require.NotEmpty(t, res.UsedCalleeSaved)
	for _, r := range res.UsedCalleeSaved {
		require.True(t, tinyISA.CalleeSaved[r])
	}
}

func TestFrameSizeRoundsTo16(t *testing.T) {
	fn := straightLineFunc(5, ir.Size8)
	res, _ := Allocate(fn, tinyISA)
	fs := FrameSize(res, 0, 0)
	require.Equal(t, 0, fs%16)
}

func TestLiveRangeStartBeforeEnd(t *testing.T) {
	fn := straightLineFunc(4, ir.Size8)
	ranges := ComputeLiveRanges(fn)
	for _, lr := range ranges {
		require.LessOrEqual(t, lr.Start, lr.End)
	}
}
