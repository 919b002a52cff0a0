//go:build bigidx

package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// IdxSize is the native index type.
type IdxSize = uint64

type (
	IdxArray   = array.Uint64
	IdxBuilder = array.Uint64Builder
)

// IdxType is the Arrow type of index columns.
var IdxType arrow.DataType = arrow.PrimitiveTypes.Uint64

// NewIdxBuilder returns a builder for index columns.
func NewIdxBuilder(mem memory.Allocator) *IdxBuilder {
	return array.NewUint64Builder(mem)
}
