//go:build !llvm14 && !llvm15 && !llvm16 && !llvm17 && !llvm18 && !llvm19 && !llvm20

package llvmalt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sox/ir"
)

func TestGenerateObjectFileReportsUnavailableWithoutLLVMTag(t *testing.T) {
	err := GenerateObjectFile(&ir.Module{}, "/tmp/unused.o")
	require.Error(t, err)
}
