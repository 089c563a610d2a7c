//go:build !llvm14 && !llvm15 && !llvm16 && !llvm17 && !llvm18 && !llvm19 && !llvm20

package llvmalt

import (
	"fmt"

	"sox/ir"
)

// GenerateObjectFile is the no-op fallback used when the module is not
// built with one of the llvm14..llvm20 tags.
func GenerateObjectFile(mod *ir.Module, outputPath string) error {
	return fmt.Errorf("llvmalt: LLVM object emission not available: build with -tags llvm18 (or another supported LLVM version)")
}
