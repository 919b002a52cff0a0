// Package compute implements null-aware kernels over array columns (fixed-size
// lists) and list construction from scalar columns.
//
// Kernels receive their allocator through the context; use
// [github.com/apache/arrow-go/v18/arrow/compute.WithAllocator] to set one. Every kernel returns a new column
// named like its first operand, which the caller must release.
package compute

import "errors"

var (
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrOutOfBounds      = errors.New("indices out of bounds")
	ErrAllNullIndices   = errors.New("all indices are null")
	ErrUnsupportedDType = errors.New("operation not supported for dtype")
	ErrType             = errors.New("type error")
)
