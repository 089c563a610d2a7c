// Package frontend bridges the out-of-scope Sox source front end
// (lexer/parser/compiler) to irbuild.Closure, so cmd/soxc can drive the
// whole pipeline from a .sox source file. It is kept out of the back end
// proper: the back end's contract is irbuild.Closure, not source text.
package frontend

import (
	"fmt"
	"strings"

	"sox/bytecode"
	"sox/compiler"
	"sox/interpreter"
	"sox/irbuild"
	"sox/lexer"
	"sox/parser"
)

// Compile parses and compiles source, then converts the result into an
// irbuild.Closure for the top-level program. Constants shared by the
// compiler's single flat constant pool (compiler.Bytecode.Constants) are
// converted once; nested closures reference that same slice by index, just
// as compiler/compiler.go's OpClosure/OpConstant operands do.
func Compile(name, source string) (irbuild.Closure, error) {
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return irbuild.Closure{}, fmt.Errorf("frontend: parse errors: %s", strings.Join(errs, "; "))
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		return irbuild.Closure{}, fmt.Errorf("frontend: compile: %w", err)
	}

	bc := comp.Bytecode()
	constants := convertConstants(bc.Constants)
	return irbuild.Closure{
		Name:      name,
		Code:      bytecode.Instructions(bc.Instructions),
		Constants: constants,
	}, nil
}

// convertConstants lowers the compiler's interpreter.Value constant pool
// into the plain-Go-value pool irbuild.Closure accepts. Every produced
// irbuild.Closure shares the same backing slice, so an OpClosure/OpConstant
// operand resolves identically regardless of which function references it.
func convertConstants(values []interpreter.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = convertConstant(v, out)
	}
	return out
}

func convertConstant(v interpreter.Value, pool []any) any {
	switch c := v.(type) {
	case *interpreter.Integer:
		return c.Value
	case *interpreter.Float:
		return c.Value
	case *interpreter.Boolean:
		return c.Value
	case *interpreter.String:
		return c.Value
	case *interpreter.Null, nil:
		return nil
	case *interpreter.Closure:
		return irbuild.Closure{
			Arity:       c.Fn.NumParameters,
			NumLocals:   c.Fn.NumLocals,
			NumUpvalues: len(c.Free),
			Constants:   pool,
			Code:        bytecode.Instructions(c.Fn.Instructions),
		}
	default:
		return nil
	}
}
