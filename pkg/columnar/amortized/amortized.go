// Package amortized iterates over the rows of array columns without
// allocating per row, and builds list or array columns from per-row element
// selections.
//
// Transforms never materialise a row as its own array. Instead they describe
// their output as positions within the row; all positions of a call are
// gathered from the source values with a single take once the traversal is
// done.
package amortized

import (
	"context"
	"fmt"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"

	"github.com/grafana/arraykernels/pkg/columnar"
)

// Row is a view over one non-null row of an array column. A Row is only valid
// for the iteration step that yielded it.
type Row struct {
	values arrow.Array
	start  int
	width  int
}

// Len returns the number of elements in the row.
func (r *Row) Len() int { return r.width }

// Start returns the position of the row's first element in Values.
func (r *Row) Start() int { return r.start }

// End returns the position one past the row's last element in Values.
func (r *Row) End() int { return r.start + r.width }

// Values returns the child values of the whole column.
func (r *Row) Values() arrow.Array { return r.values }

// IsNull reports whether the j-th element of the row is null.
func (r *Row) IsNull(j int) bool { return r.values.IsNull(r.start + j) }

// Rows returns a sequence over the rows of arr in order. Null rows are yielded
// as nil. The same *Row is reused for every step.
func Rows(arr *array.FixedSizeList) iter.Seq2[int, *Row] {
	return func(yield func(int, *Row) bool) {
		row := &Row{values: arr.ListValues(), width: columnar.Width(arr)}

		for i := range arr.Len() {
			if arr.IsNull(i) {
				if !yield(i, nil) {
					return
				}
				continue
			}

			start, _ := arr.ValueOffsets(i)
			row.start = int(start)
			if !yield(i, row) {
				return
			}
		}
	}
}

// SelectFunc selects elements from row i by appending their positions,
// relative to the start of the row, to dst. A position of -1 selects a null
// element. Returning ok=false emits a null row.
type SelectFunc func(i int, row *Row, dst []int) (sel []int, ok bool, err error)

// TryMapToList applies fn to every non-null row of arr and collects the
// selected elements into a list column with one row per input row. Null input
// rows produce null output rows. The first error returned by fn aborts the
// traversal and is returned unchanged.
func TryMapToList(ctx context.Context, arr *array.FixedSizeList, fn SelectFunc) (*array.LargeList, error) {
	mem := arrowcompute.GetAllocator(ctx)

	indices := array.NewInt64Builder(mem)
	defer indices.Release()

	var (
		offsets  = make([]int64, 1, arr.Len()+1)
		validity = columnar.NewValidityBuilder(arr.Len())
		scratch  []int
	)

	for i, row := range Rows(arr) {
		if row == nil {
			offsets = append(offsets, offsets[len(offsets)-1])
			validity.Append(false)
			continue
		}

		sel, ok, err := fn(i, row, scratch[:0])
		if err != nil {
			return nil, err
		}
		scratch = sel

		if !ok {
			offsets = append(offsets, offsets[len(offsets)-1])
			validity.Append(false)
			continue
		}

		appendPositions(indices, row.start, sel)
		offsets = append(offsets, offsets[len(offsets)-1]+int64(len(sel)))
		validity.Append(true)
	}

	child, err := take(ctx, arr.ListValues(), indices)
	if err != nil {
		return nil, err
	}
	defer child.Release()

	elem := arr.DataType().(*arrow.FixedSizeListType).ElemField()
	return columnar.NewLargeList(elem, offsets, validity, child), nil
}

// MapToList is [TryMapToList] for selections that cannot fail.
func MapToList(ctx context.Context, arr *array.FixedSizeList, fn func(row *Row, dst []int) []int) (*array.LargeList, error) {
	return TryMapToList(ctx, arr, func(_ int, row *Row, dst []int) ([]int, bool, error) {
		return fn(row, dst), true, nil
	})
}

// PermuteFunc fills dst, which has exactly row.Len() entries, with positions
// relative to the start of the row. A position of -1 emits a null element.
type PermuteFunc func(row *Row, dst []int)

// MapSameShape applies fn to every non-null row of arr and returns an array
// column of the same type, width and length. Null rows stay null.
//
// Because fn can only fill the row's own slots, the output shape is fixed by
// construction; fn must still only reference positions in [0, row.Len()).
func MapSameShape(ctx context.Context, arr *array.FixedSizeList, fn PermuteFunc) (*array.FixedSizeList, error) {
	return mapSameShape(ctx, arr, func(_ int, row *Row, dst []int) bool {
		fn(row, dst)
		return true
	})
}

// ZipPermuteFunc is a [PermuteFunc] that receives a per-row parameter.
type ZipPermuteFunc func(row *Row, param int64, dst []int)

// ZipMapSameShape is [MapSameShape] with a second, position-aligned int64
// parameter. A row is null in the output when either the row or its parameter
// is null. params must have the same length as arr.
func ZipMapSameShape(ctx context.Context, arr *array.FixedSizeList, params *array.Int64, fn ZipPermuteFunc) (*array.FixedSizeList, error) {
	if params.Len() != arr.Len() {
		return nil, fmt.Errorf("parameter length %d does not match column length %d", params.Len(), arr.Len())
	}

	return mapSameShape(ctx, arr, func(i int, row *Row, dst []int) bool {
		if params.IsNull(i) {
			return false
		}
		fn(row, params.Value(i), dst)
		return true
	})
}

func mapSameShape(ctx context.Context, arr *array.FixedSizeList, fn func(i int, row *Row, dst []int) bool) (*array.FixedSizeList, error) {
	var (
		mem   = arrowcompute.GetAllocator(ctx)
		width = columnar.Width(arr)
	)

	indices := array.NewInt64Builder(mem)
	defer indices.Release()
	indices.Reserve(arr.Len() * width)

	var (
		validity = columnar.NewValidityBuilder(arr.Len())
		dst      = make([]int, width)
	)

	for i, row := range Rows(arr) {
		if row == nil || !fn(i, row, dst) {
			indices.AppendNulls(width)
			validity.Append(false)
			continue
		}

		appendPositions(indices, row.start, dst)
		validity.Append(true)
	}

	child, err := take(ctx, arr.ListValues(), indices)
	if err != nil {
		return nil, err
	}
	defer child.Release()

	return columnar.NewFixedSizeList(arr.DataType(), validity, child), nil
}

func appendPositions(indices *array.Int64Builder, start int, sel []int) {
	for _, pos := range sel {
		if pos < 0 {
			indices.AppendNull()
			continue
		}
		indices.Append(int64(start + pos))
	}
}

func take(ctx context.Context, values arrow.Array, indices *array.Int64Builder) (arrow.Array, error) {
	idx := indices.NewInt64Array()
	defer idx.Release()

	return arrowcompute.TakeArray(ctx, values, idx)
}
