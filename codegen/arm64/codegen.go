// Package arm64 is the AArch64 (AAPCS64) code generator, analogous to
// codegen/x86 but with ARM64 conventions: fixed-width instructions, 26-bit
// branch offsets in instruction-count units, and ADRP+ADD page addressing
// for data references (spec.md §4.6).
package arm64

import (
	"fmt"
	"math"

	"sox/asm/arm64"
	"sox/ir"
	"sox/regalloc"
)

// ISA is the ARM64 allocatable register set: X9-X15, X19-X28 (17 registers);
// X0-X7 are reserved for argument marshalling (spec.md §4.2).
var ISA = regalloc.ISA{
	Name: "arm64",
	Allocatable: []regalloc.PhysReg{
		reg(arm64.X9), reg(arm64.X10), reg(arm64.X11), reg(arm64.X12),
		reg(arm64.X13), reg(arm64.X14), reg(arm64.X15),
		reg(arm64.X19), reg(arm64.X20), reg(arm64.X21), reg(arm64.X22),
		reg(arm64.X23), reg(arm64.X24), reg(arm64.X25), reg(arm64.X26),
		reg(arm64.X27), reg(arm64.X28),
	},
	CalleeSaved: map[regalloc.PhysReg]bool{
		reg(arm64.X19): true, reg(arm64.X20): true, reg(arm64.X21): true,
		reg(arm64.X22): true, reg(arm64.X23): true, reg(arm64.X24): true,
		reg(arm64.X25): true, reg(arm64.X26): true, reg(arm64.X27): true,
		reg(arm64.X28): true,
	},
	Pairs: true,
}

// globalArea reserves fixed scratch space for globals, per spec.md §4.2.
// Open question (spec.md §9): whether this is a deliberate scratch region
// or an unbounded leak is left to the caller; we size it fixed at 256 bytes
// and never grow it.
const globalArea = 256

func reg(r arm64.Reg) regalloc.PhysReg  { return regalloc.PhysReg(r) }
func phys(r regalloc.PhysReg) arm64.Reg { return arm64.Reg(r) }

var argRegs = []arm64.Reg{arm64.X0, arm64.X1, arm64.X2, arm64.X3, arm64.X4, arm64.X5, arm64.X6, arm64.X7}

type patchKind int

const (
	patchLabel patchKind = iota
	patchFunc
)

type patch struct {
	kind     patchKind
	instrIdx int
	cond     bool // true => 19-bit B.cond patch, false => 26-bit B/BL patch
	label    ir.Label
	funcName string
}

// Relocation is an ARM64 external-symbol reference recorded against an
// instruction offset, expressed in instruction-count units; sox's codegenFor
// multiplies the offset by four before it reaches the object writer.
type Relocation struct {
	InstrOffset int
	Kind        arm64.RelocKind
	Symbol      string
	Addend      int64
}

type FuncLayout struct {
	Name        string
	InstrOffset int
	InstrCount  int
}

// RoDataEntry is one interned string literal's symbol name and byte offset
// within the generator's rodata blob (spec.md EXPANSION C).
type RoDataEntry struct {
	Name   string
	Offset int
}

type Generator struct {
	enc         *arm64.Encoder
	funcOffset  map[string]int
	layouts     []FuncLayout
	relocs      []Relocation
	Diagnostics []string

	rodata    []byte
	roIntern  map[string]string
	roEntries []RoDataEntry
}

func NewGenerator() *Generator {
	return &Generator{enc: arm64.New(), funcOffset: make(map[string]int)}
}

func (g *Generator) Words() []byte                { return g.enc.Bytes() }
func (g *Generator) Relocations() []Relocation    { return g.relocs }
func (g *Generator) Layouts() []FuncLayout        { return g.layouts }
func (g *Generator) RoData() []byte               { return g.rodata }
func (g *Generator) RoDataEntries() []RoDataEntry { return g.roEntries }

// internString deduplicates string literals by content, assigning each
// unique literal a local symbol name and appending its NUL-terminated bytes
// to the generator's rodata blob.
func (g *Generator) internString(s string) string {
	if name, ok := g.roIntern[s]; ok {
		return name
	}
	if g.roIntern == nil {
		g.roIntern = make(map[string]string)
	}
	name := fmt.Sprintf(".Lstr%d", len(g.roEntries))
	g.roEntries = append(g.roEntries, RoDataEntry{Name: name, Offset: len(g.rodata)})
	g.rodata = append(g.rodata, []byte(s)...)
	g.rodata = append(g.rodata, 0)
	g.roIntern[s] = name
	return name
}

func (g *Generator) Generate(mod *ir.Module) error {
	var pending []patch
	for i := range mod.Functions {
		fn := &mod.Functions[i]
		start := g.enc.CurrentInstr()
		fn.CodeOffset = start
		g.funcOffset[fn.Name] = start

		res, err := regalloc.Allocate(fn, ISA)
		if err != nil {
			return fmt.Errorf("arm64 codegen: %s: regalloc: %w", fn.Name, err)
		}
		localPatches, err := g.genFunction(mod, fn, res)
		if err != nil {
			return fmt.Errorf("arm64 codegen: %s: %w", fn.Name, err)
		}
		pending = append(pending, localPatches...)
		g.layouts = append(g.layouts, FuncLayout{Name: fn.Name, InstrOffset: start, InstrCount: g.enc.CurrentInstr() - start})
	}

	for _, p := range pending {
		if p.kind != patchFunc {
			continue
		}
		target, ok := g.funcOffset[p.funcName]
		if !ok {
			return fmt.Errorf("arm64 codegen: intra-module call to unknown function %q", p.funcName)
		}
		if err := g.enc.PatchB26(p.instrIdx, target); err != nil {
			return fmt.Errorf("arm64 codegen: patching call to %s: %w", p.funcName, err)
		}
	}
	return nil
}

type blockEmit struct {
	label ir.Label
	instr int
}

func (g *Generator) genFunction(mod *ir.Module, fn *ir.Function, res *regalloc.Result) ([]patch, error) {
	frameSize := regalloc.FrameSize(res, fn.NumLocals*8, globalArea)
	g.emitPrologue(res, frameSize)

	phiMoves := collectPhiMoves(fn)
	var blockOffsets []blockEmit
	var patches []patch

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		blockOffsets = append(blockOffsets, blockEmit{label: blk.Label, instr: g.enc.CurrentInstr()})
		n := len(blk.Instrs)
		movesEmitted := false
		for ii := 0; ii < n; ii++ {
			in := &blk.Instrs[ii]
			if ii == n-1 && isTerminator(in.Op) {
				g.emitPhiMoves(res, phiMoves[blk.Label])
				movesEmitted = true
			}
			ps, err := g.genInstr(mod, fn, res, in, frameSize)
			if err != nil {
				return nil, err
			}
			patches = append(patches, ps...)
		}
		if !movesEmitted {
			g.emitPhiMoves(res, phiMoves[blk.Label])
		}
	}

	labelInstr := make(map[ir.Label]int, len(blockOffsets))
	for _, be := range blockOffsets {
		labelInstr[be.label] = be.instr
	}

	var funcPatches []patch
	for _, p := range patches {
		switch p.kind {
		case patchLabel:
			target, ok := labelInstr[p.label]
			if !ok {
				return nil, fmt.Errorf("unresolved label L%d", p.label)
			}
			var err error
			if p.cond {
				err = g.enc.PatchBCond19(p.instrIdx, target)
			} else {
				err = g.enc.PatchB26(p.instrIdx, target)
			}
			if err != nil {
				return nil, err
			}
		case patchFunc:
			funcPatches = append(funcPatches, p)
		}
	}
	return funcPatches, nil
}

// phiMove is one copy a predecessor block performs on its way out so the
// successor's phi destination holds the value coming from this edge.
type phiMove struct {
	dest ir.Operand
	src  ir.Operand
}

func isTerminator(op ir.Op) bool {
	switch op {
	case ir.OpJump, ir.OpBranch, ir.OpReturn, ir.OpReturnVoid:
		return true
	}
	return false
}

func collectPhiMoves(fn *ir.Function) map[ir.Label][]phiMove {
	moves := make(map[ir.Label][]phiMove)
	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			in := &fn.Blocks[bi].Instrs[ii]
			if in.Op != ir.OpPhi {
				continue
			}
			for i, pred := range in.PhiPreds {
				moves[pred] = append(moves[pred], phiMove{dest: in.Dest, src: in.PhiVals[i]})
			}
		}
	}
	return moves
}

func (g *Generator) emitPhiMoves(res *regalloc.Result, moves []phiMove) {
	for _, mv := range moves {
		src := g.loadOperand(res, arm64.X9, mv.src)
		g.storeResult(res, mv.dest.Reg, src)
	}
}

// calleeSavedPairs groups the registers an allocation actually used into
// adjacent (lo, hi) STP/LDP pairs, padding a trailing odd register with XZR
// so every push/pop is a register-pair instruction.
func calleeSavedPairs(res *regalloc.Result) [][2]arm64.Reg {
	used := make([]arm64.Reg, 0, len(res.UsedCalleeSaved))
	for _, r := range res.UsedCalleeSaved {
		used = append(used, phys(r))
	}
	var pairs [][2]arm64.Reg
	for i := 0; i < len(used); i += 2 {
		if i+1 < len(used) {
			pairs = append(pairs, [2]arm64.Reg{used[i], used[i+1]})
		} else {
			pairs = append(pairs, [2]arm64.Reg{used[i], arm64.XZR})
		}
	}
	return pairs
}

// emitPrologue saves FP/LR plus any callee-saved registers the allocation
// actually used, then subtracts the 16-byte-aligned padded frame.
func (g *Generator) emitPrologue(res *regalloc.Result, frameSize int) {
	g.enc.StpPre(arm64.X29, arm64.X30, arm64.SP, -2)
	g.enc.MovReg(arm64.X29, arm64.SP)
	for _, p := range calleeSavedPairs(res) {
		g.enc.StpPre(p[0], p[1], arm64.SP, -2)
	}
	if frameSize > 0 {
		g.enc.SubImm12(arm64.SP, arm64.SP, uint16(frameSize))
	}
}

func (g *Generator) emitEpilogue(res *regalloc.Result, frameSize int) {
	if frameSize > 0 {
		g.enc.AddImm12(arm64.SP, arm64.SP, uint16(frameSize))
	}
	pairs := calleeSavedPairs(res)
	for i := len(pairs) - 1; i >= 0; i-- {
		g.enc.LdpPost(pairs[i][0], pairs[i][1], arm64.SP, 2)
	}
	g.enc.LdpPost(arm64.X29, arm64.X30, arm64.SP, 2)
	g.enc.Ret()
}

func (g *Generator) loadOperand(res *regalloc.Result, scratch arm64.Reg, op ir.Operand) arm64.Reg {
	switch op.Kind {
	case ir.OperandConst:
		g.loadConst(scratch, op)
		return scratch
	case ir.OperandReg:
		if r, ok := res.RegisterFor(op.Reg); ok {
			return phys(r)
		}
		off, _ := res.SpillOffset(op.Reg)
		g.enc.LdrImm(scratch, arm64.X29, uint16(off/8))
		return scratch
	}
	return scratch
}

func (g *Generator) loadConst(dst arm64.Reg, op ir.Operand) {
	switch v := op.Const.(type) {
	case int64:
		g.enc.MovImm64(dst, uint64(v))
	case int:
		g.enc.MovImm64(dst, uint64(int64(v)))
	case float64:
		// Fixed consistently with the x86-64 backend: the raw IEEE-754 bit
		// pattern moves into a GPR rather than through an SSE-style load.
		g.enc.MovImm64(dst, math.Float64bits(v))
	case bool:
		if v {
			g.enc.Movz(dst, 1, 0)
		} else {
			g.enc.Movz(dst, 0, 0)
		}
	case string:
		name := g.internString(v)
		adrpIdx := g.enc.Adrp(dst)
		g.relocs = append(g.relocs, Relocation{InstrOffset: adrpIdx, Kind: arm64.RelocADRPrelPgHi21, Symbol: name})
		addIdx := g.enc.AddImm12Lo12(dst, dst)
		g.relocs = append(g.relocs, Relocation{InstrOffset: addIdx, Kind: arm64.RelocAddAbsLo12NC, Symbol: name})
	case nil:
		g.enc.Movz(dst, 0, 0)
	default:
		g.enc.Movz(dst, 0, 0)
	}
}

func (g *Generator) storeResult(res *regalloc.Result, v ir.VReg, from arm64.Reg) {
	if r, ok := res.RegisterFor(v); ok {
		if phys(r) != from {
			g.enc.MovReg(phys(r), from)
		}
		return
	}
	off, _ := res.SpillOffset(v)
	g.enc.StrImm(from, arm64.X29, uint16(off/8))
}

func scratchFor(res *regalloc.Result, dest ir.Operand) arm64.Reg {
	if dest.Kind != ir.OperandReg {
		return arm64.X9
	}
	if r, ok := res.RegisterFor(dest.Reg); ok {
		return phys(r)
	}
	return arm64.X9
}

func (g *Generator) finishDest(res *regalloc.Result, in *ir.Instr) {
	if in.Dest.Kind != ir.OperandReg {
		return
	}
	if _, ok := res.RegisterFor(in.Dest.Reg); ok {
		return
	}
	g.storeResult(res, in.Dest.Reg, arm64.X9)
}

func (g *Generator) genInstr(mod *ir.Module, fn *ir.Function, res *regalloc.Result, in *ir.Instr, frameSize int) ([]patch, error) {
	switch in.Op {
	case ir.OpConstInt, ir.OpConstFloat, ir.OpConstBool, ir.OpConstNil:
		g.loadConst(scratchFor(res, in.Dest), in.Src[0])
		g.finishDest(res, in)
		return nil, nil

	case ir.OpLoadString:
		dst := scratchFor(res, in.Dest)
		g.loadConst(dst, ir.Operand{Kind: ir.OperandConst, Const: in.StringLit})
		g.finishDest(res, in)
		return nil, nil

	case ir.OpMove:
		src := g.loadOperand(res, arm64.X9, in.Src[0])
		g.storeResult(res, in.Dest.Reg, src)
		return nil, nil

	case ir.OpPhi:
		return nil, nil

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr:
		return nil, g.genBinary(res, in)

	case ir.OpMul:
		return nil, g.genArith3(res, in, g.enc.Mul)

	case ir.OpDiv:
		return nil, g.genArith3(res, in, g.enc.Sdiv)

	case ir.OpMod:
		return nil, g.genMod(res, in)

	case ir.OpNeg:
		dst := scratchFor(res, in.Dest)
		src := g.loadOperand(res, arm64.X9, in.Src[0])
		g.enc.Neg(dst, src)
		g.finishDest(res, in)
		return nil, nil

	case ir.OpNot:
		dst := scratchFor(res, in.Dest)
		src := g.loadOperand(res, arm64.X9, in.Src[0])
		g.enc.CmpImm(src, 0)
		g.enc.Cset(dst, arm64.CondEQ)
		g.finishDest(res, in)
		return nil, nil

	case ir.OpEqual, ir.OpNotEqual, ir.OpGreater, ir.OpLess, ir.OpGreaterEqual, ir.OpLessEqual:
		return nil, g.genCompare(res, in)

	case ir.OpJump:
		idx := g.enc.B()
		return []patch{{kind: patchLabel, instrIdx: idx, label: in.Target}}, nil

	case ir.OpBranch:
		cond := g.loadOperand(res, arm64.X9, in.Src[0])
		g.enc.CmpImm(cond, 0)
		idxTaken := g.enc.BCond(arm64.CondNE)
		idxElse := g.enc.B()
		return []patch{
			{kind: patchLabel, instrIdx: idxTaken, cond: true, label: in.Target},
			{kind: patchLabel, instrIdx: idxElse, label: in.Else},
		}, nil

	case ir.OpCallFunc:
		return g.genCallFunc(mod, fn, res, in)

	case ir.OpCallSymbol:
		return g.genCallSymbol(res, in)

	case ir.OpReturn:
		src := g.loadOperand(res, arm64.X0, in.Src[0])
		if src != arm64.X0 {
			g.enc.MovReg(arm64.X0, src)
		}
		g.emitEpilogue(res, frameSize)
		return nil, nil

	case ir.OpReturnVoid:
		g.emitEpilogue(res, frameSize)
		return nil, nil

	case ir.OpLoadLocal, ir.OpLoadGlobal, ir.OpLoadUpvalue:
		dst := scratchFor(res, in.Dest)
		idx, _ := in.Src[0].Const.(int64)
		g.enc.LdrImm(dst, arm64.X29, uint16(idx+1))
		g.finishDest(res, in)
		return nil, nil

	case ir.OpStoreLocal, ir.OpStoreGlobal, ir.OpStoreUpvalue:
		src := g.loadOperand(res, arm64.X9, in.Src[0])
		idx, _ := in.Src[1].Const.(int64)
		g.enc.StrImm(src, arm64.X29, uint16(idx+1))
		return nil, nil

	case ir.OpGetProperty:
		dest := in.Dest
		name := ir.Operand{Kind: ir.OperandConst, Const: in.StringLit}
		return nil, g.genRuntimeCall(res, "sox_native_get_property", []ir.Operand{in.Src[0], name}, &dest)

	case ir.OpSetProperty:
		name := ir.Operand{Kind: ir.OperandConst, Const: in.StringLit}
		return nil, g.genRuntimeCall(res, "sox_native_set_property", []ir.Operand{in.Src[0], name, in.Src[1]}, nil)

	case ir.OpGetIndex:
		dest := in.Dest
		return nil, g.genRuntimeCall(res, "sox_native_get_index", []ir.Operand{in.Src[0], in.Src[1]}, &dest)

	case ir.OpSetIndex:
		return nil, g.genRuntimeCall(res, "sox_native_set_index", []ir.Operand{in.Src[0], in.Src[1], in.Src[2]}, nil)

	case ir.OpNewArray:
		dest := in.Dest
		return nil, g.genRuntimeCall(res, "sox_native_alloc_array", nil, &dest)

	case ir.OpNewTable:
		dest := in.Dest
		return nil, g.genRuntimeCall(res, "sox_native_alloc_table", nil, &dest)

	case ir.OpNewString:
		dest := in.Dest
		return nil, g.genRuntimeCall(res, "sox_native_alloc_string", nil, &dest)

	default:
		g.Diagnostics = append(g.Diagnostics, fmt.Sprintf("unsupported IR opcode %s", in.Op))
		return nil, nil
	}
}

func (g *Generator) genBinary(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, arm64.X9, in.Src[0])
	right := g.loadOperand(res, arm64.X10, in.Src[1])
	switch in.Op {
	case ir.OpAdd:
		g.enc.AddRegReg(dst, left, right)
	case ir.OpSub:
		g.enc.SubRegReg(dst, left, right)
	case ir.OpAnd:
		g.enc.AndRegReg(dst, left, right)
	case ir.OpOr:
		g.enc.OrrRegReg(dst, left, right)
	}
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genArith3(res *regalloc.Result, in *ir.Instr, emit func(dst, a, b arm64.Reg)) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, arm64.X9, in.Src[0])
	right := g.loadOperand(res, arm64.X10, in.Src[1])
	emit(dst, left, right)
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genMod(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, arm64.X9, in.Src[0])
	right := g.loadOperand(res, arm64.X10, in.Src[1])
	g.enc.Sdiv(arm64.X11, left, right)
	g.enc.Mul(arm64.X11, arm64.X11, right)
	g.enc.SubRegReg(dst, left, arm64.X11)
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genCompare(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, arm64.X9, in.Src[0])
	right := g.loadOperand(res, arm64.X10, in.Src[1])
	g.enc.CmpReg(left, right)
	var cond arm64.Cond
	switch in.Op {
	case ir.OpEqual:
		cond = arm64.CondEQ
	case ir.OpNotEqual:
		cond = arm64.CondNE
	case ir.OpGreater:
		cond = arm64.CondGT
	case ir.OpLess:
		cond = arm64.CondLT
	case ir.OpGreaterEqual:
		cond = arm64.CondGE
	case ir.OpLessEqual:
		cond = arm64.CondLE
	}
	g.enc.Cset(dst, cond)
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genCallFunc(mod *ir.Module, fn *ir.Function, res *regalloc.Result, in *ir.Instr) ([]patch, error) {
	g.marshalArgs(res, in.Args)
	target := mod.Functions[in.Target].Name
	idx := g.enc.Bl()
	if in.HasDest() {
		g.storeResult(res, in.Dest.Reg, arm64.X0)
	}
	return []patch{{kind: patchFunc, instrIdx: idx, funcName: target}}, nil
}

func (g *Generator) genCallSymbol(res *regalloc.Result, in *ir.Instr) ([]patch, error) {
	g.marshalArgs(res, in.Args)
	idx := g.enc.Bl()
	g.relocs = append(g.relocs, Relocation{InstrOffset: idx, Kind: arm64.RelocCALL26, Symbol: in.Symbol})
	if in.HasDest() {
		g.storeResult(res, in.Dest.Reg, arm64.X0)
	}
	return nil, nil
}

// genRuntimeCall lowers a property/index/object-creation opcode to a call
// against the fixed sox_native_* runtime contract (runtimeabi.CoreSymbols).
func (g *Generator) genRuntimeCall(res *regalloc.Result, symbol string, args []ir.Operand, dest *ir.Operand) error {
	callArgs := make([]ir.CallArg, len(args))
	for i, a := range args {
		callArgs[i] = ir.CallArg{Value: a}
	}
	g.marshalArgs(res, callArgs)
	idx := g.enc.Bl()
	g.relocs = append(g.relocs, Relocation{InstrOffset: idx, Kind: arm64.RelocCALL26, Symbol: symbol})
	if dest != nil && dest.Kind == ir.OperandReg {
		g.storeResult(res, dest.Reg, arm64.X0)
	}
	return nil
}

// marshalArgs loads up to eight arguments into X0-X7; overflow arguments
// spill to the caller's outgoing stack area reserved within the frame
// (spec.md §4.6: "overflow on the stack").
func (g *Generator) marshalArgs(res *regalloc.Result, args []ir.CallArg) {
	for i := 0; i < len(args) && i < len(argRegs); i++ {
		v := g.loadOperand(res, argRegs[i], args[i].Value)
		if v != argRegs[i] {
			g.enc.MovReg(argRegs[i], v)
		}
	}
	for i := len(argRegs); i < len(args); i++ {
		v := g.loadOperand(res, arm64.X9, args[i].Value)
		g.enc.StrImm(v, arm64.SP, uint16(i-len(argRegs)))
	}
}
