package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/arraykernels/pkg/internal/unsafecast"
)

// Width returns the number of elements in each row of arr.
func Width(arr *array.FixedSizeList) int {
	return int(arr.DataType().(*arrow.FixedSizeListType).Len())
}

// ValidityBuilder accumulates a row validity bitmap.
type ValidityBuilder struct {
	bits  []byte
	len   int
	nulls int
}

// NewValidityBuilder returns a builder with room for n rows.
func NewValidityBuilder(n int) *ValidityBuilder {
	return &ValidityBuilder{bits: make([]byte, 0, bitutil.BytesForBits(int64(n)))}
}

// Append records the validity of the next row.
func (b *ValidityBuilder) Append(valid bool) {
	if need := int(bitutil.BytesForBits(int64(b.len + 1))); need > len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	if valid {
		bitutil.SetBit(b.bits, b.len)
	} else {
		b.nulls++
	}
	b.len++
}

// Len returns the number of appended rows.
func (b *ValidityBuilder) Len() int { return b.len }

// NullN returns the number of appended null rows.
func (b *ValidityBuilder) NullN() int { return b.nulls }

// buffer returns the bitmap as a buffer, or nil when no row is null.
func (b *ValidityBuilder) buffer() *memory.Buffer {
	if b.nulls == 0 {
		return nil
	}
	return memory.NewBufferBytes(b.bits)
}

// NewLargeList assembles a list column from per-row offsets into child.
// offsets holds validity.Len()+1 entries. The element field of the result is
// elem. NewLargeList does not take ownership of child.
func NewLargeList(elem arrow.Field, offsets []int64, validity *ValidityBuilder, child arrow.Array) *array.LargeList {
	data := array.NewData(
		arrow.LargeListOfField(elem),
		validity.Len(),
		[]*memory.Buffer{validity.buffer(), memory.NewBufferBytes(unsafecast.Slice[int64, byte](offsets))},
		[]arrow.ArrayData{child.Data()},
		validity.NullN(),
		0,
	)
	defer data.Release()
	return array.NewLargeListData(data)
}

// NewFixedSizeList assembles an array column of type dt from child, which
// holds validity.Len() * width elements. NewFixedSizeList does not take
// ownership of child.
func NewFixedSizeList(dt arrow.DataType, validity *ValidityBuilder, child arrow.Array) *array.FixedSizeList {
	data := array.NewData(
		dt,
		validity.Len(),
		[]*memory.Buffer{validity.buffer()},
		[]arrow.ArrayData{child.Data()},
		validity.NullN(),
		0,
	)
	defer data.Release()
	return array.NewFixedSizeListData(data)
}
