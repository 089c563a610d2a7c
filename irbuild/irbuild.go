// Package irbuild translates one compiled bytecode closure into the typed
// IR the rest of the back end consumes (spec.md §4.1). It consumes a
// Closure mirroring the out-of-scope bytecode compiler's own output
// (rush/bytecode.Instructions plus rush/compiler.Bytecode's constant pool)
// and produces one ir.Function per closure, plus one per nested closure
// found in its constant pool.
//
// The builder mirrors the bytecode's own evaluation stack with a slice of
// ir.Operand: each opcode pops its sources off that stack, allocates a
// fresh destination register, emits the corresponding IR instruction, and
// pushes the destination. Jump targets split the instruction stream into
// blocks; where a block has more than one predecessor the values sitting
// on the stack at that point differ per incoming edge, so the builder
// materialises them as phi nodes instead of reusing whichever predecessor
// happened to run last.
package irbuild

import (
	"fmt"

	"sox/bytecode"
	"sox/ir"
)

// Closure is the IR builder's sole input: one compiled function body,
// mirroring compiler.Bytecode plus the name/arity/upvalue count a runtime
// closure value would otherwise carry.
type Closure struct {
	Name        string
	Arity       int
	NumUpvalues int
	NumLocals   int
	// Constants is the closure's constant pool. Accepted element types are
	// int64, float64, bool, nil, string, and Closure (for nested function
	// bodies); any other type is ignored with a diagnostic if referenced.
	Constants []any
	Code      bytecode.Instructions
}

// builtinRef marks a stack value produced by OpGetBuiltin, carried as an
// Operand's Const payload so OpCall can recognise a builtin callee without
// a parallel side-stack.
type builtinRef struct{ name string }

// builtinNames mirrors the fixed builtin name table the (out-of-scope)
// front end assigns OpGetBuiltin indices against (rush/interpreter.Builtins);
// the back end only needs it to resolve OpGetBuiltin's operand to a name.
var builtinNames = []string{
	"JSON", "Time", "Duration", "TimeZone", "Regexp",
	"len", "print", "puts", "type", "ord", "chr", "substr", "split",
	"push", "pop", "slice",
	"Error", "ValidationError", "TypeError", "IndexError", "ArgumentError", "RuntimeError",
	"to_string",
	"builtin_abs", "builtin_min", "builtin_max", "builtin_floor", "builtin_ceil",
	"builtin_round", "builtin_sqrt", "builtin_pow", "builtin_random", "builtin_random_int",
	"builtin_sum", "builtin_average",
	"builtin_hash_keys", "builtin_hash_values", "builtin_hash_has_key", "builtin_hash_get",
	"builtin_hash_set", "builtin_hash_delete", "builtin_hash_merge", "array_to_hash",
	"file", "directory", "path",
}

// runtimeSymbolForBuiltin maps a builtin name to the fixed sox_native_*
// entry point that implements it, when one exists (runtimeabi.CoreSymbols).
// Builtins with no native counterpart fall back to the unsupported-opcode
// diagnostic path, matching spec.md §7's "never a hard parse failure" rule.
func runtimeSymbolForBuiltin(name string) (string, bool) {
	switch name {
	case "print":
		return "sox_native_print", true
	}
	return "", false
}

// Builder accumulates diagnostics across one or more Build calls against
// the same module.
type Builder struct {
	Diagnostics []string
}

// New returns a Builder ready to translate closures into mod.
func New() *Builder { return &Builder{} }

// Build translates cl, and every nested Closure reachable through its
// constant pool, into ir.Functions appended to mod. It returns cl's own
// function index.
func (b *Builder) Build(mod *ir.Module, cl Closure) (int, error) {
	name := cl.Name
	if name == "" {
		// Every function needs a name codegen can key its offset map by;
		// an anonymous nested closure still needs one unique to itself.
		name = fmt.Sprintf("$fn%d", len(mod.Functions))
	}
	mod.Functions = append(mod.Functions, ir.Function{
		Name: name, Arity: cl.Arity, NumLocals: cl.NumLocals, NumUpvalues: cl.NumUpvalues,
	})
	myIdx := len(mod.Functions) - 1

	nested := make(map[int]int, 0) // constant index -> function index
	for ci, c := range cl.Constants {
		child, ok := c.(Closure)
		if !ok {
			continue
		}
		childIdx, err := b.Build(mod, child)
		if err != nil {
			return 0, fmt.Errorf("irbuild: %s: nested closure %d: %w", cl.Name, ci, err)
		}
		nested[ci] = childIdx
	}

	fn := &mod.Functions[myIdx]
	fb := &funcBuilder{b: b, mod: mod, fn: fn, cl: cl, nested: nested, myIdx: myIdx}
	if err := fb.run(); err != nil {
		return 0, fmt.Errorf("irbuild: %s: %w", cl.Name, err)
	}
	return myIdx, nil
}

// decoded is one bytecode instruction at a known offset, already parsed.
type decoded struct {
	Offset   int
	Op       bytecode.Opcode
	Operands []int
	Next     int
}

func decodeAll(code bytecode.Instructions) ([]decoded, error) {
	var out []decoded
	i := 0
	for i < len(code) {
		op := bytecode.Opcode(code[i])
		def, err := bytecode.Lookup(op)
		if err != nil {
			return nil, fmt.Errorf("decode offset %d: %w", i, err)
		}
		operands, read := bytecode.ReadOperands(def, code[i+1:])
		next := i + 1 + read
		out = append(out, decoded{Offset: i, Op: op, Operands: operands, Next: next})
		i = next
	}
	return out, nil
}

// stackEffect reports (pops, pushes) for the opcode subset irbuild natively
// lowers (spec.md §4.1). Opcodes outside this subset are assumed net-zero,
// a known approximation accepted for closures that never reach them in a
// way that matters to the supported program surface (spec.md §7).
func stackEffect(op bytecode.Opcode, operands []int) (pops, pushes int) {
	switch op {
	case bytecode.OpConstant, bytecode.OpTrue, bytecode.OpFalse, bytecode.OpNull,
		bytecode.OpGetGlobal, bytecode.OpGetLocal, bytecode.OpGetFree, bytecode.OpGetBuiltin,
		bytecode.OpCurrentClosure, bytecode.OpDup:
		return 0, 1
	case bytecode.OpPop, bytecode.OpSetGlobal, bytecode.OpSetLocal, bytecode.OpSetFree,
		bytecode.OpJumpNotTruthy, bytecode.OpJumpTruthy, bytecode.OpReturn:
		return 1, 0
	case bytecode.OpSwap:
		return 2, 2
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpGreaterThan, bytecode.OpLessThan,
		bytecode.OpGreaterEqual, bytecode.OpLessEqual, bytecode.OpAnd, bytecode.OpOr,
		bytecode.OpIndex, bytecode.OpGetHash:
		return 2, 1
	case bytecode.OpNot, bytecode.OpMinus:
		return 1, 1
	case bytecode.OpGetProperty:
		return 1, 1
	case bytecode.OpSetProperty:
		return 2, 0
	case bytecode.OpSetIndex, bytecode.OpSetHash:
		return 3, 0
	case bytecode.OpArray:
		return operands[0], 1
	case bytecode.OpHash:
		return operands[0] * 2, 1
	case bytecode.OpCall:
		return operands[0] + 1, 1
	case bytecode.OpClosure:
		return operands[1], 1
	case bytecode.OpJump, bytecode.OpReturnVoid:
		return 0, 0
	default:
		return 0, 0
	}
}

func isTerminatorOp(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpJump, bytecode.OpReturn, bytecode.OpReturnVoid:
		return true
	}
	return false
}

// edge is one predecessor's contribution to a block's entry stack.
type edge struct {
	from ir.Label
	vals []ir.Operand
}

type funcBuilder struct {
	b      *Builder
	mod    *ir.Module
	fn     *ir.Function
	cl     Closure
	nested map[int]int
	myIdx  int

	label map[int]ir.Label     // bytecode offset -> block label
	entry map[int][]ir.Operand // bytecode offset -> entry stack placeholders
	edges map[int][]edge       // bytecode offset -> incoming edges
}

func (fb *funcBuilder) diag(format string, args ...any) {
	fb.b.Diagnostics = append(fb.b.Diagnostics, fmt.Sprintf(format, args...))
}

func (fb *funcBuilder) run() error {
	instrs, err := decodeAll(fb.cl.Code)
	if err != nil {
		return err
	}
	if len(instrs) == 0 {
		fb.fn.NewLabel()
		fb.fn.Blocks[0].Instrs = append(fb.fn.Blocks[0].Instrs, ir.Instr{Op: ir.OpReturnVoid})
		return nil
	}

	byOffset := make(map[int]decoded, len(instrs))
	blockStarts := map[int]bool{0: true}
	for _, di := range instrs {
		byOffset[di.Offset] = di
		switch di.Op {
		case bytecode.OpJump:
			blockStarts[di.Operands[0]] = true
			blockStarts[di.Next] = true
		case bytecode.OpJumpNotTruthy, bytecode.OpJumpTruthy:
			blockStarts[di.Operands[0]] = true
			blockStarts[di.Next] = true
		case bytecode.OpReturn, bytecode.OpReturnVoid:
			// A join jump the front end emits unconditionally can follow a
			// branch that itself ended in return; start a fresh block so
			// that dead tail never lands after this block's terminator.
			blockStarts[di.Next] = true
		}
	}

	// Stack depth at a given offset is a property of control flow, not of
	// byte order: a flat left-to-right scan would carry the consequent's
	// pushes into the alternative branch of an if/else. Walk reachable
	// offsets along actual edges instead, seeding depth 0 at the entry.
	depthAt := make(map[int]int, len(instrs))
	visited := make(map[int]bool, len(instrs))
	var walk func(off, depth int)
	walk = func(off, depth int) {
		if visited[off] {
			return
		}
		di, ok := byOffset[off]
		if !ok {
			return
		}
		visited[off] = true
		depthAt[off] = depth
		pops, pushes := stackEffect(di.Op, di.Operands)
		next := depth - pops + pushes
		switch di.Op {
		case bytecode.OpJump:
			walk(di.Operands[0], next)
		case bytecode.OpJumpNotTruthy, bytecode.OpJumpTruthy:
			walk(di.Operands[0], next)
			walk(di.Next, next)
		case bytecode.OpReturn, bytecode.OpReturnVoid:
			// terminator: no fallthrough successor
		default:
			walk(di.Next, next)
		}
	}
	walk(0, 0)

	fb.label = make(map[int]ir.Label, len(blockStarts))
	fb.entry = make(map[int][]ir.Operand, len(blockStarts))
	fb.edges = make(map[int][]edge)
	for off := range blockStarts {
		fb.label[off] = fb.fn.NewLabel()
		n := depthAt[off]
		vals := make([]ir.Operand, n)
		for i := 0; i < n; i++ {
			vals[i] = ir.Reg(fb.fn.NewVReg(), ir.Size8)
		}
		fb.entry[off] = vals
	}

	stack := append([]ir.Operand(nil), fb.entry[0]...)
	curOff := 0
	fallsThrough := true

	pushInstr := func(in ir.Instr) {
		blk := fb.fn.Block(fb.label[curOff])
		blk.Instrs = append(blk.Instrs, in)
	}
	recordEdge := func(target int, vals []ir.Operand) {
		n := len(fb.entry[target])
		v := append([]ir.Operand(nil), vals[len(vals)-n:]...)
		fb.edges[target] = append(fb.edges[target], edge{from: fb.label[curOff], vals: v})
		fb.fn.AddEdge(fb.label[curOff], fb.label[target])
	}

	for idx, di := range instrs {
		if blockStarts[di.Offset] && idx > 0 {
			if fallsThrough {
				recordEdge(di.Offset, stack)
			}
			curOff = di.Offset
			stack = append([]ir.Operand(nil), fb.entry[di.Offset]...)
		}
		fallsThrough = !isTerminatorOp(di.Op) && di.Op != bytecode.OpJump &&
			di.Op != bytecode.OpJumpNotTruthy && di.Op != bytecode.OpJumpTruthy

		newStack, err := fb.translate(di, stack, pushInstr, recordEdge)
		if err != nil {
			return err
		}
		stack = newStack
	}

	for off, vals := range fb.entry {
		if len(vals) == 0 {
			continue
		}
		label := fb.label[off]
		blk := fb.fn.Block(label)
		var phis []ir.Instr
		for i, dest := range vals {
			phi := ir.Instr{Op: ir.OpPhi, Dest: dest}
			for _, e := range fb.edges[off] {
				if i >= len(e.vals) {
					continue
				}
				phi.PhiPreds = append(phi.PhiPreds, e.from)
				phi.PhiVals = append(phi.PhiVals, e.vals[i])
			}
			phis = append(phis, phi)
		}
		blk.Instrs = append(phis, blk.Instrs...)
	}
	return nil
}

// translate emits the IR for one bytecode instruction, returning the
// updated virtual stack.
func (fb *funcBuilder) translate(di decoded, stack []ir.Operand, emit func(ir.Instr), recordEdge func(int, []ir.Operand)) ([]ir.Operand, error) {
	pop := func() ir.Operand {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v ir.Operand) { stack = append(stack, v) }
	fresh := func() ir.Operand { return ir.Reg(fb.fn.NewVReg(), ir.Size8) }

	switch di.Op {
	case bytecode.OpConstant:
		v := fb.cl.Constants[di.Operands[0]]
		dest := fresh()
		switch c := v.(type) {
		case int64:
			emit(ir.Instr{Op: ir.OpConstInt, Dest: dest, Src: [3]ir.Operand{ir.Const(c, ir.Size8)}})
		case int:
			emit(ir.Instr{Op: ir.OpConstInt, Dest: dest, Src: [3]ir.Operand{ir.Const(int64(c), ir.Size8)}})
		case float64:
			emit(ir.Instr{Op: ir.OpConstFloat, Dest: dest, Src: [3]ir.Operand{ir.Const(c, ir.Size8)}})
		case bool:
			emit(ir.Instr{Op: ir.OpConstBool, Dest: dest, Src: [3]ir.Operand{ir.Const(c, ir.Size8)}})
		case string:
			emit(ir.Instr{Op: ir.OpLoadString, Dest: dest, StringLit: c})
		case nil:
			emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
		default:
			fb.diag("unsupported constant type %T at offset %d", c, di.Offset)
			emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
		}
		push(dest)

	case bytecode.OpTrue:
		dest := fresh()
		emit(ir.Instr{Op: ir.OpConstBool, Dest: dest, Src: [3]ir.Operand{ir.Const(true, ir.Size8)}})
		push(dest)
	case bytecode.OpFalse:
		dest := fresh()
		emit(ir.Instr{Op: ir.OpConstBool, Dest: dest, Src: [3]ir.Operand{ir.Const(false, ir.Size8)}})
		push(dest)
	case bytecode.OpNull:
		dest := fresh()
		emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
		push(dest)

	case bytecode.OpPop:
		pop()

	case bytecode.OpDup:
		top := stack[len(stack)-1]
		dest := fresh()
		emit(ir.Instr{Op: ir.OpMove, Dest: dest, Src: [3]ir.Operand{top}})
		push(dest)

	case bytecode.OpSwap:
		a := pop()
		b := pop()
		push(a)
		push(b)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpGreaterThan, bytecode.OpLessThan,
		bytecode.OpGreaterEqual, bytecode.OpLessEqual, bytecode.OpAnd, bytecode.OpOr:
		right := pop()
		left := pop()
		dest := fresh()
		emit(ir.Instr{Op: binOpFor(di.Op), Dest: dest, Src: [3]ir.Operand{left, right}})
		push(dest)

	case bytecode.OpNot:
		src := pop()
		dest := fresh()
		emit(ir.Instr{Op: ir.OpNot, Dest: dest, Src: [3]ir.Operand{src}})
		push(dest)

	case bytecode.OpMinus:
		src := pop()
		dest := fresh()
		emit(ir.Instr{Op: ir.OpNeg, Dest: dest, Src: [3]ir.Operand{src}})
		push(dest)

	case bytecode.OpGetGlobal, bytecode.OpGetLocal, bytecode.OpGetFree:
		dest := fresh()
		emit(ir.Instr{Op: loadOpFor(di.Op), Dest: dest, Src: [3]ir.Operand{ir.Const(int64(di.Operands[0]), ir.Size8)}})
		push(dest)

	case bytecode.OpSetGlobal, bytecode.OpSetLocal, bytecode.OpSetFree:
		v := pop()
		emit(ir.Instr{Op: storeOpFor(di.Op), Src: [3]ir.Operand{v, ir.Const(int64(di.Operands[0]), ir.Size8)}})

	case bytecode.OpGetProperty:
		name, _ := fb.cl.Constants[di.Operands[0]].(string)
		obj := pop()
		dest := fresh()
		emit(ir.Instr{Op: ir.OpGetProperty, Dest: dest, Src: [3]ir.Operand{obj}, StringLit: name})
		push(dest)

	case bytecode.OpSetProperty:
		name, _ := fb.cl.Constants[di.Operands[0]].(string)
		val := pop()
		obj := pop()
		emit(ir.Instr{Op: ir.OpSetProperty, Src: [3]ir.Operand{obj, val}, StringLit: name})

	case bytecode.OpIndex, bytecode.OpGetHash:
		idx := pop()
		obj := pop()
		dest := fresh()
		emit(ir.Instr{Op: ir.OpGetIndex, Dest: dest, Src: [3]ir.Operand{obj, idx}})
		push(dest)

	case bytecode.OpSetIndex, bytecode.OpSetHash:
		val := pop()
		idx := pop()
		obj := pop()
		emit(ir.Instr{Op: ir.OpSetIndex, Src: [3]ir.Operand{obj, idx, val}})

	case bytecode.OpArray:
		n := di.Operands[0]
		elems := make([]ir.Operand, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = pop()
		}
		dest := fresh()
		emit(ir.Instr{Op: ir.OpNewArray, Dest: dest})
		for i, v := range elems {
			emit(ir.Instr{Op: ir.OpSetIndex, Src: [3]ir.Operand{dest, ir.Const(int64(i), ir.Size8), v}})
		}
		push(dest)

	case bytecode.OpHash:
		pairs := di.Operands[0]
		type kv struct{ k, v ir.Operand }
		entries := make([]kv, pairs)
		for i := pairs - 1; i >= 0; i-- {
			v := pop()
			k := pop()
			entries[i] = kv{k: k, v: v}
		}
		dest := fresh()
		emit(ir.Instr{Op: ir.OpNewTable, Dest: dest})
		for _, e := range entries {
			emit(ir.Instr{Op: ir.OpSetIndex, Src: [3]ir.Operand{dest, e.k, e.v}})
		}
		push(dest)

	case bytecode.OpGetBuiltin:
		name := ""
		if idx := di.Operands[0]; idx >= 0 && idx < len(builtinNames) {
			name = builtinNames[idx]
		}
		push(ir.Operand{Kind: ir.OperandConst, Const: builtinRef{name: name}})

	case bytecode.OpCurrentClosure:
		push(ir.FuncRef(fb.myIdx))

	case bytecode.OpClosure:
		constIdx, freeCount := di.Operands[0], di.Operands[1]
		for i := 0; i < freeCount; i++ {
			pop()
		}
		childIdx, ok := fb.nested[constIdx]
		if !ok {
			fb.diag("OpClosure at offset %d references non-closure constant %d", di.Offset, constIdx)
			dest := fresh()
			emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
			push(dest)
			break
		}
		if freeCount > 0 {
			fb.diag("closure at offset %d captures %d free variables; upvalue capture is not modelled, calls dispatch statically", di.Offset, freeCount)
		}
		push(ir.FuncRef(childIdx))

	case bytecode.OpCall:
		argc := di.Operands[0]
		args := make([]ir.CallArg, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = ir.CallArg{Value: pop()}
		}
		callee := pop()
		dest := fresh()
		switch {
		case callee.Kind == ir.OperandFunc:
			emit(ir.Instr{Op: ir.OpCallFunc, Dest: dest, Target: ir.Label(callee.Func), Args: args})
		case callee.Kind == ir.OperandConst:
			if ref, ok := callee.Const.(builtinRef); ok {
				if sym, ok := runtimeSymbolForBuiltin(ref.name); ok {
					emit(ir.Instr{Op: ir.OpCallSymbol, Dest: dest, Symbol: sym, Args: args})
					break
				}
				fb.diag("builtin %q at offset %d has no native runtime entry point", ref.name, di.Offset)
			}
			emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
		default:
			fb.diag("dynamic call target at offset %d is not statically resolvable", di.Offset)
			emit(ir.Instr{Op: ir.OpConstNil, Dest: dest, Src: [3]ir.Operand{ir.Const(nil, ir.Size8)}})
		}
		push(dest)

	case bytecode.OpReturn:
		v := pop()
		emit(ir.Instr{Op: ir.OpReturn, Src: [3]ir.Operand{v}})

	case bytecode.OpReturnVoid:
		emit(ir.Instr{Op: ir.OpReturnVoid})

	case bytecode.OpJump:
		target := di.Operands[0]
		recordEdge(target, stack)
		emit(ir.Instr{Op: ir.OpJump, Target: fb.label[target]})

	case bytecode.OpJumpNotTruthy, bytecode.OpJumpTruthy:
		cond := pop()
		target := di.Operands[0]
		recordEdge(target, stack)
		recordEdge(di.Next, stack)
		taken, notTaken := fb.label[target], fb.label[di.Next]
		if di.Op == bytecode.OpJumpNotTruthy {
			emit(ir.Instr{Op: ir.OpBranch, Src: [3]ir.Operand{cond}, Target: notTaken, Else: taken})
		} else {
			emit(ir.Instr{Op: ir.OpBranch, Src: [3]ir.Operand{cond}, Target: taken, Else: notTaken})
		}

	default:
		fb.diag("unsupported IR opcode for bytecode op %d at offset %d", di.Op, di.Offset)
	}

	return stack, nil
}

func binOpFor(op bytecode.Opcode) ir.Op {
	switch op {
	case bytecode.OpAdd:
		return ir.OpAdd
	case bytecode.OpSub:
		return ir.OpSub
	case bytecode.OpMul:
		return ir.OpMul
	case bytecode.OpDiv:
		return ir.OpDiv
	case bytecode.OpMod:
		return ir.OpMod
	case bytecode.OpEqual:
		return ir.OpEqual
	case bytecode.OpNotEqual:
		return ir.OpNotEqual
	case bytecode.OpGreaterThan:
		return ir.OpGreater
	case bytecode.OpLessThan:
		return ir.OpLess
	case bytecode.OpGreaterEqual:
		return ir.OpGreaterEqual
	case bytecode.OpLessEqual:
		return ir.OpLessEqual
	case bytecode.OpAnd:
		return ir.OpAnd
	case bytecode.OpOr:
		return ir.OpOr
	}
	return ir.OpAdd
}

func loadOpFor(op bytecode.Opcode) ir.Op {
	switch op {
	case bytecode.OpGetGlobal:
		return ir.OpLoadGlobal
	case bytecode.OpGetFree:
		return ir.OpLoadUpvalue
	default:
		return ir.OpLoadLocal
	}
}

func storeOpFor(op bytecode.Opcode) ir.Op {
	switch op {
	case bytecode.OpSetGlobal:
		return ir.OpStoreGlobal
	case bytecode.OpSetFree:
		return ir.OpStoreUpvalue
	default:
		return ir.OpStoreLocal
	}
}
