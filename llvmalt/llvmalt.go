//go:build llvm14 || llvm15 || llvm16 || llvm17 || llvm18 || llvm19 || llvm20

// Package llvmalt is an alternate object-emission path: it lowers the same
// ir.Module the hand-rolled x86/ARM64 encoders consume, but through LLVM's
// own target machine instead of byte-level instruction selection. Kept
// build-tag gated exactly like the teacher's minimal LLVM path, since
// tinygo.org/x/go-llvm requires the matching LLVM shared libraries at
// build time.
package llvmalt

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"sox/ir"
)

// GenerateObjectFile lowers every function in mod into one LLVM module and
// writes a native relocatable object to outputPath via the host's default
// target machine. Only the arithmetic/call/return subset irbuild natively
// produces is lowered; anything else yields an error, matching this
// package's role as an alternate path rather than a second full back end.
func GenerateObjectFile(mod *ir.Module, outputPath string) error {
	llvm.InitializeNativeTarget()
	llvm.InitializeNativeAsmPrinter()

	context := llvm.NewContext()
	defer context.Dispose()

	module := context.NewModule(mod.SourceFile)
	defer module.Dispose()

	builder := context.NewBuilder()
	defer builder.Dispose()

	i64 := context.Int64Type()

	fns := make([]llvm.Value, len(mod.Functions))
	for i, fn := range mod.Functions {
		paramTypes := make([]llvm.Type, fn.Arity)
		for j := range paramTypes {
			paramTypes[j] = i64
		}
		fnType := llvm.FunctionType(i64, paramTypes, false)
		fns[i] = llvm.AddFunction(module, fn.Name, fnType)
	}

	for i := range mod.Functions {
		if err := lowerFunction(context, builder, module, mod, i, fns); err != nil {
			return fmt.Errorf("llvmalt: %s: %w", mod.Functions[i].Name, err)
		}
	}

	if err := llvm.VerifyModule(module, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("llvmalt: module verification failed: %w", err)
	}

	targetTriple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(targetTriple)
	if err != nil {
		return fmt.Errorf("llvmalt: resolving target: %w", err)
	}
	machine := target.CreateTargetMachine(targetTriple, "generic", "",
		llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer machine.Dispose()

	targetData := machine.CreateTargetData()
	defer targetData.Dispose()
	module.SetDataLayout(targetData.String())
	module.SetTarget(targetTriple)

	if err := machine.EmitToFile(module, outputPath, llvm.ObjectFile); err != nil {
		return fmt.Errorf("llvmalt: emitting object: %w", err)
	}
	return nil
}

func lowerFunction(ctx llvm.Context, b llvm.Builder, module llvm.Module, mod *ir.Module, idx int, fns []llvm.Value) error {
	fn := &mod.Functions[idx]
	llfn := fns[idx]

	blocks := make([]llvm.BasicBlock, len(fn.Blocks))
	for i, blk := range fn.Blocks {
		blocks[i] = ctx.AddBasicBlock(llfn, fmt.Sprintf("L%d", blk.Label))
	}

	vals := make(map[ir.VReg]llvm.Value)
	load := func(op ir.Operand) (llvm.Value, error) {
		switch op.Kind {
		case ir.OperandReg:
			v, ok := vals[op.Reg]
			if !ok {
				return llvm.Value{}, fmt.Errorf("register r%d used before definition", op.Reg)
			}
			return v, nil
		case ir.OperandConst:
			switch c := op.Const.(type) {
			case int64:
				return llvm.ConstInt(ctx.Int64Type(), uint64(c), true), nil
			case bool:
				n := uint64(0)
				if c {
					n = 1
				}
				return llvm.ConstInt(ctx.Int64Type(), n, false), nil
			}
		}
		return llvm.Value{}, fmt.Errorf("unsupported operand %v in LLVM lowering", op)
	}

	for bi, blk := range fn.Blocks {
		b.SetInsertPointAtEnd(blocks[bi])
		for _, in := range blk.Instrs {
			switch in.Op {
			case ir.OpConstInt:
				v, err := load(in.Src[0])
				if err != nil {
					return err
				}
				vals[in.Dest.Reg] = v
			case ir.OpAdd, ir.OpSub, ir.OpMul:
				lhs, err := load(in.Src[0])
				if err != nil {
					return err
				}
				rhs, err := load(in.Src[1])
				if err != nil {
					return err
				}
				var res llvm.Value
				switch in.Op {
				case ir.OpAdd:
					res = b.CreateAdd(lhs, rhs, "")
				case ir.OpSub:
					res = b.CreateSub(lhs, rhs, "")
				case ir.OpMul:
					res = b.CreateMul(lhs, rhs, "")
				}
				vals[in.Dest.Reg] = res
			case ir.OpReturn:
				v, err := load(in.Src[0])
				if err != nil {
					return err
				}
				b.CreateRet(v)
			case ir.OpReturnVoid:
				b.CreateRet(llvm.ConstInt(ctx.Int64Type(), 0, false))
			case ir.OpJump:
				b.CreateBr(blocks[blockIndex(fn, in.Target)])
			case ir.OpCallFunc:
				args := make([]llvm.Value, len(in.Args))
				for i, a := range in.Args {
					v, err := load(a.Value)
					if err != nil {
						return err
					}
					args[i] = v
				}
				res := b.CreateCall(llvm.FunctionType(ctx.Int64Type(), nil, false), fns[in.Target], args, "")
				if in.HasDest() {
					vals[in.Dest.Reg] = res
				}
			default:
				return fmt.Errorf("unsupported IR opcode %s in LLVM lowering", in.Op)
			}
		}
	}
	return nil
}

func blockIndex(fn *ir.Function, l ir.Label) int {
	for i, blk := range fn.Blocks {
		if blk.Label == l {
			return i
		}
	}
	return 0
}
