package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sox/irbuild"
)

// TestCompileSimpleArithmetic exercises the whole parse -> compile ->
// constant-conversion pipeline on a source program with no nested functions.
func TestCompileSimpleArithmetic(t *testing.T) {
	cl, err := Compile("main", `print(2 + 3);`)
	require.NoError(t, err)
	require.Equal(t, "main", cl.Name)
	require.NotEmpty(t, cl.Code)

	var sawTwo, sawThree bool
	for _, c := range cl.Constants {
		if n, ok := c.(int64); ok {
			switch n {
			case 2:
				sawTwo = true
			case 3:
				sawThree = true
			}
		}
	}
	require.True(t, sawTwo)
	require.True(t, sawThree)
}

// TestCompileNestedClosureSharesConstantPool exercises convertConstants'
// Closure case: an outer function returning an inner one that captures an
// upvalue must convert into an irbuild.Closure constant sharing the same
// backing constants slice as its enclosing program.
func TestCompileNestedClosureSharesConstantPool(t *testing.T) {
	src := `
	fn makeAdder(x) {
		return fn(y) {
			return x + y;
		};
	}
	makeAdder(1);
	`
	cl, err := Compile("main", src)
	require.NoError(t, err)

	var inner *irbuild.Closure
	for i := range cl.Constants {
		if nested, ok := cl.Constants[i].(irbuild.Closure); ok {
			inner = &nested
			break
		}
	}
	require.NotNil(t, inner, "expected a nested closure constant for makeAdder's inner function")
	require.Equal(t, 1, inner.Arity)
	require.Equal(t, 1, inner.NumUpvalues)
	require.NotEmpty(t, inner.Code)

	// Every constant pool, including the nested closure's own, must be the
	// exact same backing slice irbuild threads OpClosure/OpConstant indices
	// through.
	require.Equal(t, len(cl.Constants), len(inner.Constants))
	if len(cl.Constants) > 0 {
		require.Same(t, &cl.Constants[0], &inner.Constants[0])
	}
}
