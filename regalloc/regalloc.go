// Package regalloc implements linear-scan register allocation over one IR
// function at a time (spec.md §4.2).
package regalloc

import (
	"sort"

	"sox/ir"
)

// PhysReg is an ISA physical register number.
type PhysReg int

// NoReg marks a live range that did not receive a physical register.
const NoReg PhysReg = -1

// ISA describes the allocatable register set and pairing rule a target
// architecture exposes to the allocator.
type ISA struct {
	Name string
	// Allocatable lists every physical register the allocator may hand out,
	// excluding the stack pointer, frame pointer, return address, and any
	// other architecturally reserved register (spec.md §4.2).
	Allocatable []PhysReg
	// CalleeSaved is the subset of Allocatable the ABI requires the callee
	// to preserve.
	CalleeSaved map[PhysReg]bool
	// Pairs requires 16-byte values to occupy two adjacent registers whose
	// numbers differ by one (true for ARM64 only).
	Pairs bool
}

// LiveRange is the position interval over which one virtual register's
// value must be preserved, plus its allocation outcome.
type LiveRange struct {
	VReg  ir.VReg
	Start int
	End   int
	Size  ir.Size

	Reg         PhysReg // NoReg if spilled
	HighReg     PhysReg // paired register for Size16 on ARM64, NoReg otherwise
	Spilled     bool
	SpillSlot   int // index in [0, spill_count)
	SpillOffset int // byte offset from frame base
}

// Result is the allocator's query contract for one function (spec.md §4.2):
// register_for, spill_offset, high_register_for.
type Result struct {
	ranges map[ir.VReg]*LiveRange

	SpillCount        int
	SpillBytes        int
	UsedCalleeSaved   []PhysReg
	usedCalleeSavedSet map[PhysReg]bool
}

// RegisterFor returns the physical register assigned to v, or (NoReg, false)
// if v was spilled or is unknown.
func (r *Result) RegisterFor(v ir.VReg) (PhysReg, bool) {
	lr, ok := r.ranges[v]
	if !ok || lr.Spilled {
		return NoReg, false
	}
	return lr.Reg, true
}

// HighRegisterFor returns the paired high register for a 16-byte value, or
// (NoReg, false) if v is not a paired allocation.
func (r *Result) HighRegisterFor(v ir.VReg) (PhysReg, bool) {
	lr, ok := r.ranges[v]
	if !ok || lr.Spilled || lr.Size != ir.Size16 {
		return NoReg, false
	}
	return lr.HighReg, true
}

// SpillOffset returns the byte offset from the frame base for a spilled
// register, or (0, false) if v was not spilled.
func (r *Result) SpillOffset(v ir.VReg) (int, bool) {
	lr, ok := r.ranges[v]
	if !ok || !lr.Spilled {
		return 0, false
	}
	return lr.SpillOffset, true
}

// Range returns the raw live range for v, or nil.
func (r *Result) Range(v ir.VReg) *LiveRange { return r.ranges[v] }

// IsCalleeSavedUsed reports whether the allocation used reg in the ISA's
// callee-saved subset, so the prologue/epilogue know to save/restore it.
func (r *Result) IsCalleeSavedUsed(reg PhysReg) bool { return r.usedCalleeSavedSet[reg] }

// ComputeLiveRanges walks fn's blocks in emission order, assigning each
// instruction a monotonically increasing position and extending every
// register operand's range to include that position (spec.md §4.2).
func ComputeLiveRanges(fn *ir.Function) map[ir.VReg]*LiveRange {
	ranges := make(map[ir.VReg]*LiveRange)
	pos := 0
	touch := func(op ir.Operand) {
		if op.Kind != ir.OperandReg {
			return
		}
		lr, ok := ranges[op.Reg]
		if !ok {
			ranges[op.Reg] = &LiveRange{VReg: op.Reg, Start: pos, End: pos, Size: op.Size, Reg: NoReg, HighReg: NoReg}
			return
		}
		if pos < lr.Start {
			lr.Start = pos
		}
		if pos > lr.End {
			lr.End = pos
		}
		if op.Size > lr.Size {
			lr.Size = op.Size
		}
	}

	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			in := &fn.Blocks[bi].Instrs[ii]
			if in.HasDest() {
				touch(in.Dest)
			}
			for i := 0; i < in.NumSrc(); i++ {
				touch(in.Src[i])
			}
			for _, a := range in.Args {
				touch(a.Value)
			}
			for _, v := range in.PhiVals {
				touch(v)
			}
			pos++
		}
	}
	return ranges
}

// Allocate performs linear-scan register allocation over fn for the given
// ISA. locals*8 and global-area bytes feed FrameSize; callers on ARM64 pass
// a nonzero globalArea to reserve fixed scratch space, 0 on x86-64.
func Allocate(fn *ir.Function, isa ISA) (*Result, error) {
	ranges := ComputeLiveRanges(fn)

	sorted := make([]*LiveRange, 0, len(ranges))
	for _, lr := range ranges {
		sorted = append(sorted, lr)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	res := &Result{ranges: ranges, usedCalleeSavedSet: make(map[PhysReg]bool)}

	free := make(map[PhysReg]bool, len(isa.Allocatable))
	for _, r := range isa.Allocatable {
		free[r] = true
	}
	var active []*LiveRange // sorted by End ascending

	expireBefore := func(start int) {
		kept := active[:0]
		for _, a := range active {
			if a.End < start {
				free[a.Reg] = true
				if isa.Pairs && a.Size == ir.Size16 {
					free[a.HighReg] = true
				}
				continue
			}
			kept = append(kept, a)
		}
		active = kept
	}

	activate := func(lr *LiveRange) {
		active = append(active, lr)
		sort.Slice(active, func(i, j int) bool { return active[i].End < active[j].End })
	}

	freePair := func() (PhysReg, PhysReg, bool) {
		// Allocatable is assumed ordered; a pair is two free, adjacent
		// entries whose numbers differ by one.
		for _, lo := range isa.Allocatable {
			hi := lo + 1
			if free[lo] && free[hi] && containsReg(isa.Allocatable, hi) {
				return lo, hi, true
			}
		}
		return NoReg, NoReg, false
	}

	freeSingle := func() (PhysReg, bool) {
		for _, r := range isa.Allocatable {
			if free[r] {
				return r, true
			}
		}
		return NoReg, false
	}

	for _, lr := range sorted {
		expireBefore(lr.Start)

		if lr.Size == ir.Size16 && isa.Pairs {
			if lo, hi, ok := freePair(); ok {
				free[lo] = false
				free[hi] = false
				lr.Reg, lr.HighReg = lo, hi
				activate(lr)
			} else {
				assignSpill(res, lr)
			}
			markCalleeSaved(res, isa, lr)
			continue
		}

		if reg, ok := freeSingle(); ok {
			free[reg] = false
			lr.Reg = reg
			activate(lr)
		} else {
			assignSpill(res, lr)
		}
		markCalleeSaved(res, isa, lr)
	}

	return res, nil
}

func containsReg(set []PhysReg, r PhysReg) bool {
	for _, x := range set {
		if x == r {
			return true
		}
	}
	return false
}

func markCalleeSaved(res *Result, isa ISA, lr *LiveRange) {
	if lr.Spilled {
		return
	}
	if isa.CalleeSaved[lr.Reg] && !res.usedCalleeSavedSet[lr.Reg] {
		res.usedCalleeSavedSet[lr.Reg] = true
		res.UsedCalleeSaved = append(res.UsedCalleeSaved, lr.Reg)
	}
	if lr.Size == ir.Size16 && isa.CalleeSaved[lr.HighReg] && !res.usedCalleeSavedSet[lr.HighReg] {
		res.usedCalleeSavedSet[lr.HighReg] = true
		res.UsedCalleeSaved = append(res.UsedCalleeSaved, lr.HighReg)
	}
}

func assignSpill(res *Result, lr *LiveRange) {
	lr.Spilled = true
	lr.SpillSlot = res.SpillCount
	width := 8
	if lr.Size == ir.Size16 {
		width = 16
	}
	lr.SpillOffset = res.SpillBytes
	res.SpillBytes += width
	res.SpillCount++
}

// RoundUp16 rounds n up to the nearest multiple of 16.
func RoundUp16(n int) int { return (n + 15) &^ 15 }

// FrameSize computes round_up_16(spill_bytes + locals*8 + callee_saved_bytes
// + global_area), per spec.md §4.2. localBytes and globalArea are supplied
// by the caller (codegen), since they are ISA/frame-layout concerns, not
// allocator state.
func FrameSize(res *Result, localBytes, globalArea int) int {
	calleeSavedBytes := len(res.UsedCalleeSaved) * 8
	return RoundUp16(res.SpillBytes + localBytes + calleeSavedBytes + globalArea)
}
