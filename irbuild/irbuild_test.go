package irbuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sox/bytecode"
	"sox/ir"
)

func TestStraightLineArithmeticAndBuiltinCallLowersToIR(t *testing.T) {
	// print(2 + 3); return
	code := bytecode.FlattenInstructions([]bytecode.Instructions{
		bytecode.Make(bytecode.OpGetBuiltin, 6), // "print"
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpAdd),
		bytecode.Make(bytecode.OpCall, 1),
		bytecode.Make(bytecode.OpPop),
		bytecode.Make(bytecode.OpReturnVoid),
	})
	cl := Closure{Name: "main", Constants: []any{int64(2), int64(3)}, Code: code}

	mod := &ir.Module{}
	b := New()
	idx, err := b.Build(mod, cl)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Len(t, mod.Functions, 1)

	fn := &mod.Functions[0]
	var ops []ir.Op
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instrs {
			ops = append(ops, in.Op)
		}
	}
	require.Contains(t, ops, ir.OpAdd)
	require.Contains(t, ops, ir.OpCallSymbol)
	require.Contains(t, ops, ir.OpReturnVoid)
	require.Empty(t, b.Diagnostics)
}

func TestIfElseJoinInsertsPhiForDivergentValues(t *testing.T) {
	// if (true) { 1 } else { 2 }; return <result>
	// bytecode layout (offsets computed by hand to match Make's widths):
	//   0: OpTrue                (1 byte)
	//   1: OpJumpNotTruthy 10    (3 bytes) -> else branch at 10
	//   4: OpConstant 0          (3 bytes) consequent pushes 1
	//   7: OpJump 13             (3 bytes) -> join at 13
	//  10: OpConstant 1          (3 bytes) alternative pushes 2
	//  13: OpReturn              (1 byte)
	code := bytecode.FlattenInstructions([]bytecode.Instructions{
		bytecode.Make(bytecode.OpTrue),              // offset 0, 1 byte
		bytecode.Make(bytecode.OpJumpNotTruthy, 10),  // offset 1, 3 bytes
		bytecode.Make(bytecode.OpConstant, 0),        // offset 4, 3 bytes (consequent)
		bytecode.Make(bytecode.OpJump, 13),           // offset 7, 3 bytes
		bytecode.Make(bytecode.OpConstant, 1),        // offset 10, 3 bytes (alternative)
		bytecode.Make(bytecode.OpReturn),             // offset 13, 1 byte (join)
	})

	cl := Closure{Name: "main", Constants: []any{int64(1), int64(2)}, Code: code}
	mod := &ir.Module{}
	b := New()
	_, err := b.Build(mod, cl)
	require.NoError(t, err)

	fn := &mod.Functions[0]
	var phis int
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instrs {
			if in.Op == ir.OpPhi {
				phis++
				require.Len(t, in.PhiPreds, 2)
			}
		}
	}
	require.Equal(t, 1, phis)
}

func TestNestedClosureProducesSeparateFunctionReachableByDirectCall(t *testing.T) {
	helper := Closure{
		Name: "helper", Arity: 0,
		Code: bytecode.FlattenInstructions([]bytecode.Instructions{
			bytecode.Make(bytecode.OpConstant, 0),
			bytecode.Make(bytecode.OpReturn),
		}),
		Constants: []any{int64(42)},
	}
	main := Closure{
		Name: "main",
		Code: bytecode.FlattenInstructions([]bytecode.Instructions{
			bytecode.Make(bytecode.OpClosure, 0, 0),
			bytecode.Make(bytecode.OpCall, 0),
			bytecode.Make(bytecode.OpPop),
			bytecode.Make(bytecode.OpReturnVoid),
		}),
		Constants: []any{helper},
	}

	mod := &ir.Module{}
	b := New()
	mainIdx, err := b.Build(mod, main)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 2)
	require.Equal(t, 0, mainIdx)
	require.Equal(t, "main", mod.Functions[mainIdx].Name)
	require.Equal(t, "helper", mod.Functions[1].Name)

	var sawCallFunc bool
	for _, blk := range mod.Functions[mainIdx].Blocks {
		for _, in := range blk.Instrs {
			if in.Op == ir.OpCallFunc {
				sawCallFunc = true
				require.Equal(t, ir.Label(1), in.Target)
			}
		}
	}
	require.True(t, sawCallFunc)
}
