package ir

import (
	"fmt"
	"strings"
)

// String renders fn as a human-readable listing, one instruction per line,
// in the style of rush/bytecode.Instructions.String().
func (fn *Function) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "fn %s(arity=%d locals=%d upvalues=%d)\n", fn.Name, fn.Arity, fn.NumLocals, fn.NumUpvalues)
	for _, b := range fn.Blocks {
		fmt.Fprintf(&out, "L%d:\n", b.Label)
		for _, in := range b.Instrs {
			out.WriteString("  ")
			out.WriteString(in.String())
			out.WriteString("\n")
		}
	}
	return out.String()
}

func (in *Instr) String() string {
	var out strings.Builder
	if in.HasDest() {
		fmt.Fprintf(&out, "%s = ", in.Dest)
	}
	out.WriteString(in.Op.String())
	for i := 0; i < in.NumSrc(); i++ {
		fmt.Fprintf(&out, " %s", in.Src[i])
	}
	switch in.Op {
	case OpJump:
		fmt.Fprintf(&out, " L%d", in.Target)
	case OpBranch:
		fmt.Fprintf(&out, " L%d else L%d", in.Target, in.Else)
	case OpCallFunc:
		fmt.Fprintf(&out, " fn%d(%d args)", in.Target, len(in.Args))
	case OpCallSymbol:
		fmt.Fprintf(&out, " %s(%d args)", in.Symbol, len(in.Args))
	case OpLoadString:
		fmt.Fprintf(&out, " %q", in.StringLit)
	}
	return out.String()
}

// String renders the whole module.
func (m *Module) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "; module %s\n", m.SourceFile)
	for i := range m.Functions {
		out.WriteString(m.Functions[i].String())
	}
	return out.String()
}
