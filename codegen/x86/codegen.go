// Package x86 is the x86-64 System V code generator: per function it runs
// register allocation, emits the prologue, every block in order, then
// patches forward jumps and intra-module calls (spec.md §4.5).
package x86

import (
	"fmt"
	"math"

	"sox/asm/x86"
	"sox/ir"
	"sox/regalloc"
)

// ISA is the x86-64 allocatable register set: RAX, RCX, RDX, RBX, RSI, RDI,
// R8-R15, excluding RSP/RBP (spec.md §4.2).
var ISA = regalloc.ISA{
	Name: "x86-64",
	Allocatable: []regalloc.PhysReg{
		reg(x86.RAX), reg(x86.RCX), reg(x86.RDX), reg(x86.RBX),
		reg(x86.RSI), reg(x86.RDI),
		reg(x86.R8), reg(x86.R9), reg(x86.R10), reg(x86.R11),
		reg(x86.R12), reg(x86.R13), reg(x86.R14), reg(x86.R15),
	},
	CalleeSaved: map[regalloc.PhysReg]bool{
		reg(x86.RBX): true, reg(x86.R12): true, reg(x86.R13): true,
		reg(x86.R14): true, reg(x86.R15): true,
	},
}

// calleeSavedOrder is the fixed push/pop order the prologue/epilogue use
// regardless of which subset an individual function actually needs.
var calleeSavedOrder = []x86.Reg{x86.RBX, x86.R12, x86.R13, x86.R14, x86.R15}

func reg(r x86.Reg) regalloc.PhysReg { return regalloc.PhysReg(r) }
func phys(r regalloc.PhysReg) x86.Reg { return x86.Reg(r) }

// argRegs is the System V integer argument order.
var argRegs = []x86.Reg{x86.RDI, x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9}

// patchKind distinguishes the two deferred-displacement variants unified
// behind one tagged patch, per spec.md §9.
type patchKind int

const (
	patchLabel patchKind = iota
	patchFunc
)

type patch struct {
	kind     patchKind
	dispOff  int
	label    ir.Label
	funcIdx  int
	funcName string
}

// Relocation is a symbol reference recorded for the object writer: either an
// external call's rel32 (at call_offset + 1) or a string literal's
// RIP-relative LEA displacement.
type Relocation struct {
	Offset int // byte offset of the 32-bit displacement field
	Symbol string
	Addend int32
}

// FuncLayout records one function's final code offset and code size in
// bytes, for the object writer's symbol table and diagnostics.
type FuncLayout struct {
	Name   string
	Offset int
	Size   int
}

// RoDataEntry is one interned string literal's symbol name and byte offset
// within the generator's rodata blob (spec.md EXPANSION C).
type RoDataEntry struct {
	Name   string
	Offset int
}

// Generator emits every function of a module into one contiguous code
// buffer, resolving intra-module calls only after all functions have been
// placed (spec.md §3: code-generator lifecycles).
type Generator struct {
	enc         *x86.Encoder
	funcOffset  map[string]int
	funcOrder   []string
	layouts     []FuncLayout
	relocs      []Relocation
	Diagnostics []string

	rodata    []byte
	roIntern  map[string]string
	roEntries []RoDataEntry
}

func NewGenerator() *Generator {
	return &Generator{enc: x86.New(), funcOffset: make(map[string]int)}
}

func (g *Generator) Code() []byte              { return g.enc.Bytes() }
func (g *Generator) Relocations() []Relocation { return g.relocs }
func (g *Generator) Layouts() []FuncLayout     { return g.layouts }
func (g *Generator) RoData() []byte            { return g.rodata }
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

// Generate lowers every function in mod, in order, and resolves all
// intra-module calls once every function has a known offset.
func (g *Generator) Generate(mod *ir.Module) error {
	var pending []patch
	for i := range mod.Functions {
		fn := &mod.Functions[i]
		start := g.enc.CurrentOffset()
		fn.CodeOffset = start
		g.funcOffset[fn.Name] = start
		g.funcOrder = append(g.funcOrder, fn.Name)

		res, err := regalloc.Allocate(fn, ISA)
		if err != nil {
			return fmt.Errorf("x86 codegen: %s: regalloc: %w", fn.Name, err)
		}
		localPatches, err := g.genFunction(mod, fn, res)
		if err != nil {
			return fmt.Errorf("x86 codegen: %s: %w", fn.Name, err)
		}
		pending = append(pending, localPatches...)
		g.layouts = append(g.layouts, FuncLayout{Name: fn.Name, Offset: start, Size: g.enc.CurrentOffset() - start})
	}

	for _, p := range pending {
		if p.kind != patchFunc {
			continue
		}
		target, ok := g.funcOffset[p.funcName]
		if !ok {
			return fmt.Errorf("x86 codegen: intra-module call to unknown function %q", p.funcName)
		}
		if err := g.enc.PatchRel32(p.dispOff, target); err != nil {
			return fmt.Errorf("x86 codegen: patching call to %s: %w", p.funcName, err)
		}
	}
	return nil
}

type blockEmit struct {
	label  ir.Label
	offset int
}

// genFunction emits one function's prologue, body, and epilogue, returning
// the jump/call patches that still need resolving (labels resolve locally
// at the end of this function; function patches are returned to the caller
// for resolution once the whole module has been placed).
func (g *Generator) genFunction(mod *ir.Module, fn *ir.Function, res *regalloc.Result) ([]patch, error) {
	frameSize := regalloc.FrameSize(res, fn.NumLocals*8, 0)
	g.emitPrologue(res, frameSize)

	phiMoves := collectPhiMoves(fn)
	var blockOffsets []blockEmit
	var patches []patch

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		blockOffsets = append(blockOffsets, blockEmit{label: blk.Label, offset: g.enc.CurrentOffset()})
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

	labelOffset := make(map[ir.Label]int, len(blockOffsets))
	for _, be := range blockOffsets {
		labelOffset[be.label] = be.offset
	}

	var funcPatches []patch
	for _, p := range patches {
		switch p.kind {
		case patchLabel:
			target, ok := labelOffset[p.label]
			if !ok {
				return nil, fmt.Errorf("unresolved label L%d", p.label)
			}
			if err := g.enc.PatchRel32(p.dispOff, target); err != nil {
				return nil, err
			}
		case patchFunc:
			funcPatches = append(funcPatches, p)
		}
	}
	return funcPatches, nil
}

// phiMove is one copy a predecessor block must perform on its way out, so
// that the successor's phi destination holds the value coming from this
// edge (spec.md §3/§4.1: phis resolve to copies inserted in predecessors,
// never as a real instruction at the merge point itself).
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

// collectPhiMoves scans every OpPhi in fn and groups the per-predecessor
// copies it implies by the predecessor's label.
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
		src := g.loadOperand(res, x86.RAX, mv.src)
		g.storeResult(res, mv.dest.Reg, src)
	}
}

func (g *Generator) emitPrologue(res *regalloc.Result, frameSize int) {
	g.enc.PushReg(x86.RBP)
	g.enc.MovRegReg(x86.RBP, x86.RSP)
	for _, r := range calleeSavedOrder {
		if res.IsCalleeSavedUsed(reg(r)) {
			g.enc.PushReg(r)
		}
	}
	if frameSize > 0 {
		g.enc.SubRegImm(x86.RSP, int32(frameSize))
	}
}

func (g *Generator) emitEpilogue(res *regalloc.Result, frameSize int) {
	if frameSize > 0 {
		g.enc.AddRegImm(x86.RSP, int32(frameSize))
	}
	for i := len(calleeSavedOrder) - 1; i >= 0; i-- {
		r := calleeSavedOrder[i]
		if res.IsCalleeSavedUsed(reg(r)) {
			g.enc.PopReg(r)
		}
	}
	g.enc.PopReg(x86.RBP)
	g.enc.Ret()
}

// loadOperand returns a register holding op's value: the operand's assigned
// register when it has one, otherwise the caller-chosen scratch register,
// after materialising a constant into it or filling a spilled value from
// its frame slot.
func (g *Generator) loadOperand(res *regalloc.Result, scratch x86.Reg, op ir.Operand) x86.Reg {
	switch op.Kind {
	case ir.OperandConst:
		g.loadConst(scratch, op)
		return scratch
	case ir.OperandReg:
		if r, ok := res.RegisterFor(op.Reg); ok {
			return phys(r)
		}
		off, _ := res.SpillOffset(op.Reg)
		g.enc.MovRegFromMem(scratch, x86.RBP, int32(-(off + 8)))
		return scratch
	}
	return scratch
}

func (g *Generator) loadConst(dst x86.Reg, op ir.Operand) {
	switch v := op.Const.(type) {
	case int64:
		g.enc.MovRegImm64(dst, uint64(v))
	case int:
		g.enc.MovRegImm64(dst, uint64(int64(v)))
	case float64:
		// Open question (spec.md §9): float constants lower as their raw
		// bit pattern through the integer path; SSE2 moves are reserved
		// for derived arithmetic results, not literal materialisation.
		g.enc.MovRegImm64(dst, math.Float64bits(v))
	case bool:
		if v {
			g.enc.MovRegImm32(dst, 1)
		} else {
			g.enc.XorRegReg(dst, dst)
		}
	case string:
		name := g.internString(v)
		dispOff := g.enc.LeaRipRel(dst)
		g.relocs = append(g.relocs, Relocation{Offset: dispOff, Symbol: name, Addend: -4})
	case nil:
		g.enc.XorRegReg(dst, dst)
	default:
		g.enc.XorRegReg(dst, dst)
	}
}

func (g *Generator) storeResult(res *regalloc.Result, v ir.VReg, from x86.Reg) {
	if r, ok := res.RegisterFor(v); ok {
		if phys(r) != from {
			g.enc.MovRegReg(phys(r), from)
		}
		return
	}
	off, _ := res.SpillOffset(v)
	g.enc.MovMemFromReg(x86.RBP, int32(-(off + 8)), from)
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
		src := g.loadOperand(res, x86.RAX, in.Src[0])
		g.storeResult(res, in.Dest.Reg, src)
		return nil, nil

	case ir.OpPhi:
		// Resolved entirely by collectPhiMoves/emitPhiMoves as copies in each
		// predecessor block; nothing to emit at the merge point itself.
		return nil, nil

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr:
		return nil, g.genBinaryALU(res, in)

	case ir.OpMul:
		return nil, g.genMul(res, in)

	case ir.OpDiv, ir.OpMod:
		return nil, g.genDivMod(res, in)

	case ir.OpNeg:
		return nil, g.genNeg(res, in)

	case ir.OpNot:
		return nil, g.genNot(res, in)

	case ir.OpEqual, ir.OpNotEqual, ir.OpGreater, ir.OpLess, ir.OpGreaterEqual, ir.OpLessEqual:
		return nil, g.genCompare(res, in)

	case ir.OpJump:
		disp := g.enc.JmpRel32()
		return []patch{{kind: patchLabel, dispOff: disp, label: in.Target}}, nil

	case ir.OpBranch:
		cond := g.loadOperand(res, x86.RAX, in.Src[0])
		g.enc.TestRegReg(cond, cond)
		dispTaken := g.enc.JccRel32(x86.CondNE)
		dispElse := g.enc.JmpRel32()
		return []patch{
			{kind: patchLabel, dispOff: dispTaken, label: in.Target},
			{kind: patchLabel, dispOff: dispElse, label: in.Else},
		}, nil

	case ir.OpCallFunc:
		return g.genCallFunc(mod, fn, res, in)

	case ir.OpCallSymbol:
		return g.genCallSymbol(res, in)

	case ir.OpReturn:
		src := g.loadOperand(res, x86.RAX, in.Src[0])
		if src != x86.RAX {
			g.enc.MovRegReg(x86.RAX, src)
		}
		g.emitEpilogue(res, frameSize)
		return nil, nil

	case ir.OpReturnVoid:
		g.emitEpilogue(res, frameSize)
		return nil, nil

	case ir.OpLoadLocal, ir.OpLoadGlobal, ir.OpLoadUpvalue:
		return nil, g.genLoadSlot(res, in)

	case ir.OpStoreLocal, ir.OpStoreGlobal, ir.OpStoreUpvalue:
		return nil, g.genStoreSlot(res, in)

	case ir.OpGetProperty:
		// Property name travels as in.StringLit rather than a stack operand
		// (spec.md §4.1); marshal it as a second constant-string argument so
		// the runtime call knows which property is being read.
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
		// Unsupported opcode: emit a no-op and record a diagnostic rather
		// than abort the whole function (spec.md §7).
		g.Diagnostics = append(g.Diagnostics, fmt.Sprintf("unsupported IR opcode %s", in.Op))
		return nil, nil
	}
}

func scratchFor(res *regalloc.Result, dest ir.Operand) x86.Reg {
	if dest.Kind != ir.OperandReg {
		return x86.RAX
	}
	if r, ok := res.RegisterFor(dest.Reg); ok {
		return phys(r)
	}
	return x86.RAX
}

// finishDest writes RAX into the destination's real location when the
// destination was spilled (scratchFor returned RAX as a stand-in).
func (g *Generator) finishDest(res *regalloc.Result, in *ir.Instr) {
	if in.Dest.Kind != ir.OperandReg {
		return
	}
	if _, ok := res.RegisterFor(in.Dest.Reg); ok {
		return
	}
	g.storeResult(res, in.Dest.Reg, x86.RAX)
}

func (g *Generator) genBinaryALU(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, x86.RAX, in.Src[0])
	if dst != left {
		g.enc.MovRegReg(dst, left)
	}
	right := g.loadOperand(res, x86.RDX, in.Src[1])
	switch in.Op {
	case ir.OpAdd:
		g.enc.AddRegReg(dst, right)
	case ir.OpSub:
		g.enc.SubRegReg(dst, right)
	case ir.OpAnd:
		g.enc.AndRegReg(dst, right)
	case ir.OpOr:
		g.enc.OrRegReg(dst, right)
	}
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genMul(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, x86.RAX, in.Src[0])
	if dst != left {
		g.enc.MovRegReg(dst, left)
	}
	right := g.loadOperand(res, x86.RDX, in.Src[1])
	g.enc.ImulRegReg(dst, right)
	g.finishDest(res, in)
	return nil
}

// genDivMod routes through RAX/RDX with CQO sign extension, per spec.md §4.5.
func (g *Generator) genDivMod(res *regalloc.Result, in *ir.Instr) error {
	left := g.loadOperand(res, x86.RAX, in.Src[0])
	if left != x86.RAX {
		g.enc.MovRegReg(x86.RAX, left)
	}
	g.enc.Cqo()
	right := g.loadOperand(res, x86.R10, in.Src[1])
	g.enc.IdivReg(right)
	if in.Op == ir.OpDiv {
		g.storeResult(res, in.Dest.Reg, x86.RAX)
	} else {
		g.storeResult(res, in.Dest.Reg, x86.RDX)
	}
	return nil
}

func (g *Generator) genNeg(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	src := g.loadOperand(res, x86.RAX, in.Src[0])
	if dst != src {
		g.enc.MovRegReg(dst, src)
	}
	g.enc.NegReg(dst)
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genNot(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	src := g.loadOperand(res, x86.RAX, in.Src[0])
	g.enc.TestRegReg(src, src)
	g.enc.SetccReg(x86.CondE, dst)
	g.enc.MovzxReg8(dst)
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genCompare(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	left := g.loadOperand(res, x86.RAX, in.Src[0])
	right := g.loadOperand(res, x86.RDX, in.Src[1])
	g.enc.CmpRegReg(left, right)
	var cond x86.Cond
	switch in.Op {
	case ir.OpEqual:
		cond = x86.CondE
	case ir.OpNotEqual:
		cond = x86.CondNE
	case ir.OpGreater:
		cond = x86.CondG
	case ir.OpLess:
		cond = x86.CondL
	case ir.OpGreaterEqual:
		cond = x86.CondGE
	case ir.OpLessEqual:
		cond = x86.CondLE
	}
	g.enc.SetccReg(cond, dst)
	g.enc.MovzxReg8(dst)
	g.finishDest(res, in)
	return nil
}

// genLoadSlot treats locals/globals/upvalues uniformly as frame-relative
// slots; the IR builder assigns each a stable index carried in Src[0]'s
// constant payload.
func (g *Generator) genLoadSlot(res *regalloc.Result, in *ir.Instr) error {
	dst := scratchFor(res, in.Dest)
	idx, _ := in.Src[0].Const.(int64)
	g.enc.MovRegFromMem(dst, x86.RBP, int32(-(int(idx)+1)*8))
	g.finishDest(res, in)
	return nil
}

func (g *Generator) genStoreSlot(res *regalloc.Result, in *ir.Instr) error {
	src := g.loadOperand(res, x86.RAX, in.Src[0])
	idx, _ := in.Src[1].Const.(int64)
	g.enc.MovMemFromReg(x86.RBP, int32(-(int(idx)+1)*8), src)
	return nil
}

// genCallFunc marshals up to six arguments into RDI/RSI/RDX/RCX/R8/R9,
// pushing overflow arguments in reverse so stack order is correct, then
// records an intra-module patch to be resolved once every function has a
// known offset (spec.md §4.5).
func (g *Generator) genCallFunc(mod *ir.Module, fn *ir.Function, res *regalloc.Result, in *ir.Instr) ([]patch, error) {
	overflow := g.marshalArgs(res, in.Args)
	target := mod.Functions[in.Target].Name
	_, dispOff := g.enc.CallRel32()
	if overflow > 0 {
		g.enc.AddRegImm(x86.RSP, int32(overflow*8))
	}
	if in.HasDest() {
		g.storeResult(res, in.Dest.Reg, x86.RAX)
	}
	return []patch{{kind: patchFunc, dispOff: dispOff, funcName: target}}, nil
}

// genCallSymbol marshals arguments identically but records a PLT32
// relocation at call_offset+1 with addend -4 instead of an intra-module
// patch, since the target resolves at link time (spec.md §4.5).
func (g *Generator) genCallSymbol(res *regalloc.Result, in *ir.Instr) ([]patch, error) {
	overflow := g.marshalArgs(res, in.Args)
	instrOff, dispOff := g.enc.CallRel32()
	g.relocs = append(g.relocs, Relocation{Offset: instrOff + 1, Symbol: in.Symbol, Addend: -4})
	_ = dispOff // left unpatched: resolved by the linker, not this pass
	if overflow > 0 {
		g.enc.AddRegImm(x86.RSP, int32(overflow*8))
	}
	if in.HasDest() {
		g.storeResult(res, in.Dest.Reg, x86.RAX)
	}
	return nil, nil
}

// genRuntimeCall lowers a property/index/object-creation opcode to a call
// against the fixed sox_native_* runtime contract (runtimeabi.CoreSymbols),
// marshalling args the same way a direct OpCallSymbol would.
func (g *Generator) genRuntimeCall(res *regalloc.Result, symbol string, args []ir.Operand, dest *ir.Operand) error {
	callArgs := make([]ir.CallArg, len(args))
	for i, a := range args {
		callArgs[i] = ir.CallArg{Value: a}
	}
	overflow := g.marshalArgs(res, callArgs)
	instrOff, _ := g.enc.CallRel32()
	g.relocs = append(g.relocs, Relocation{Offset: instrOff + 1, Symbol: symbol, Addend: -4})
	if overflow > 0 {
		g.enc.AddRegImm(x86.RSP, int32(overflow*8))
	}
	if dest != nil && dest.Kind == ir.OperandReg {
		g.storeResult(res, dest.Reg, x86.RAX)
	}
	return nil
}

func (g *Generator) marshalArgs(res *regalloc.Result, args []ir.CallArg) int {
	overflow := 0
	for i := len(argRegs); i < len(args); i++ {
		overflow++
	}
	for i := len(args) - 1; i >= len(argRegs); i-- {
		v := g.loadOperand(res, x86.RAX, args[i].Value)
		g.enc.PushReg(v)
	}
	for i := 0; i < len(args) && i < len(argRegs); i++ {
		v := g.loadOperand(res, argRegs[i], args[i].Value)
		if v != argRegs[i] {
			g.enc.MovRegReg(argRegs[i], v)
		}
	}
	return overflow
}
