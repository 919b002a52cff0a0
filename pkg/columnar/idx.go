//go:build !bigidx

package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// IdxSize is the native index type. Build with the bigidx tag for 64-bit
// indices.
type IdxSize = uint32

type (
	IdxArray   = array.Uint32
	IdxBuilder = array.Uint32Builder
)

// IdxType is the Arrow type of index columns.
var IdxType arrow.DataType = arrow.PrimitiveTypes.Uint32

// NewIdxBuilder returns a builder for index columns.
func NewIdxBuilder(mem memory.Allocator) *IdxBuilder {
	return array.NewUint32Builder(mem)
}
