package compute

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/columnar/amortized"
)

// ArrayGather selects elements from every row of col by index and returns
// them as a list column. Negative indices count from the end of the row.
//
// idx is either a list column with one row of indices per row of col, or an
// integer column whose indices are applied to every row. A null index
// selects a null element. An index outside the row selects a null element if
// nullOnOOB is set and fails with [ErrOutOfBounds] otherwise.
//
// Special cases:
//
//   - A null row of col or of a list idx produces a null row.
//   - A signed integer idx without any non-null index fails with
//     [ErrAllNullIndices].
func ArrayGather(ctx context.Context, col, idx *columnar.Column, nullOnOOB bool) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	var out *array.LargeList
	if lists, ok := idx.Values().(array.ListLike); ok {
		out, err = gatherRagged(ctx, arr, lists, nullOnOOB)
	} else {
		out, err = gatherShared(ctx, arr, idx.Values(), nullOnOOB)
	}
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

func gatherRagged(ctx context.Context, arr *array.FixedSizeList, idx array.ListLike, nullOnOOB bool) (*array.LargeList, error) {
	if idx.Len() != arr.Len() {
		return nil, fmt.Errorf("%w: gather indices have length %d, expected %d", ErrLengthMismatch, idx.Len(), arr.Len())
	}

	normalize, err := newIndexNormalizer(idx.ListValues())
	if err != nil {
		return nil, err
	}
	width := columnar.Width(arr)

	return amortized.TryMapToList(ctx, arr, func(i int, _ *amortized.Row, dst []int) ([]int, bool, error) {
		if idx.IsNull(i) {
			return dst, false, nil
		}

		start, end := idx.ValueOffsets(i)
		sel, err := castIndex(normalize, int(start), int(end), width, nullOnOOB, dst)
		return sel, true, err
	})
}

func gatherShared(ctx context.Context, arr *array.FixedSizeList, idx arrow.Array, nullOnOOB bool) (*array.LargeList, error) {
	if arrow.IsSignedInteger(idx.DataType().ID()) && idx.NullN() == idx.Len() {
		return nil, fmt.Errorf("%w: cannot gather with indices of length %d", ErrAllNullIndices, idx.Len())
	}

	normalize, err := newIndexNormalizer(idx)
	if err != nil {
		return nil, err
	}

	// The indices are resolved once; the error is only reported if there is a
	// row to apply them to.
	positions, err := castIndex(normalize, 0, idx.Len(), columnar.Width(arr), nullOnOOB, nil)

	return amortized.TryMapToList(ctx, arr, func(int, *amortized.Row, []int) ([]int, bool, error) {
		if err != nil {
			return nil, false, err
		}
		return positions, true, nil
	})
}

// ArrayGet returns the element at index within every row of col. index is an
// integer column of length 1 or of the length of col. Negative indices count
// from the end of the row. A null index selects null; an index outside the
// row selects null if nullOnOOB is set and fails with [ErrOutOfBounds]
// otherwise.
func ArrayGet(ctx context.Context, col, index *columnar.Column, nullOnOOB bool) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	idx := index.Values()
	if idx.Len() != 1 && idx.Len() != arr.Len() {
		return nil, fmt.Errorf("%w: get index has length %d, expected 1 or %d", ErrLengthMismatch, idx.Len(), arr.Len())
	}

	normalize, err := newIndexNormalizer(idx)
	if err != nil {
		return nil, err
	}

	var (
		width   = columnar.Width(arr)
		scratch = make([]int, 0, 1)
	)

	indices := array.NewInt64Builder(arrowcompute.GetAllocator(ctx))
	defer indices.Release()
	indices.Reserve(arr.Len())

	for i, row := range amortized.Rows(arr) {
		if row == nil {
			indices.AppendNull()
			continue
		}

		k := i
		if idx.Len() == 1 {
			k = 0
		}

		sel, err := castIndex(normalize, k, k+1, width, nullOnOOB, scratch[:0])
		if err != nil {
			return nil, err
		}
		if sel[0] < 0 {
			indices.AppendNull()
			continue
		}
		indices.Append(int64(row.Start() + sel[0]))
	}

	positions := indices.NewInt64Array()
	defer positions.Release()

	out, err := arrowcompute.TakeArray(ctx, arr.ListValues(), positions)
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// indexNormalizer resolves the indices in [start, end) against a row of the
// given width and appends the resulting positions to dst. Null and
// out-of-bounds indices resolve to -1. It also returns the number of nulls
// before and after resolving.
type indexNormalizer func(start, end, width int, dst []int) (out []int, nullsBefore, nullsAfter int)

// castIndex resolves indices with normalize. Unless nullOnOOB is set, an
// index outside the row fails with [ErrOutOfBounds].
func castIndex(normalize indexNormalizer, start, end, width int, nullOnOOB bool, dst []int) ([]int, error) {
	out, before, after := normalize(start, end, width, dst)
	if after > before && !nullOnOOB {
		return out, fmt.Errorf("%w: gather indices are out of bounds for width %d", ErrOutOfBounds, width)
	}
	return out, nil
}

func newIndexNormalizer(idx arrow.Array) (indexNormalizer, error) {
	switch idx.DataType().ID() {
	case arrow.INT8:
		return signedNormalizer(idx, columnar.Values[int8](idx)), nil
	case arrow.INT16:
		return signedNormalizer(idx, columnar.Values[int16](idx)), nil
	case arrow.INT32:
		return signedNormalizer(idx, columnar.Values[int32](idx)), nil
	case arrow.INT64:
		return signedNormalizer(idx, columnar.Values[int64](idx)), nil
	case arrow.UINT8:
		return unsignedNormalizer(idx, columnar.Values[uint8](idx)), nil
	case arrow.UINT16:
		return unsignedNormalizer(idx, columnar.Values[uint16](idx)), nil
	case arrow.UINT32:
		return unsignedNormalizer(idx, columnar.Values[uint32](idx)), nil
	case arrow.UINT64:
		return unsignedNormalizer(idx, columnar.Values[uint64](idx)), nil
	}
	return nil, fmt.Errorf("%w: cannot use dtype %s as an index", ErrType, idx.DataType())
}

func signedNormalizer[T int8 | int16 | int32 | int64](idx arrow.Array, values []T) indexNormalizer {
	return func(start, end, width int, dst []int) ([]int, int, int) {
		var before, after int
		for i := start; i < end; i++ {
			if idx.IsNull(i) {
				before++
				after++
				dst = append(dst, -1)
				continue
			}

			v := int64(values[i])
			if v < 0 {
				v += int64(width)
			}
			if v < 0 || v >= int64(width) {
				after++
				dst = append(dst, -1)
				continue
			}
			dst = append(dst, int(v))
		}
		return dst, before, after
	}
}

func unsignedNormalizer[T uint8 | uint16 | uint32 | uint64](idx arrow.Array, values []T) indexNormalizer {
	return func(start, end, width int, dst []int) ([]int, int, int) {
		var before, after int
		for i := start; i < end; i++ {
			if idx.IsNull(i) {
				before++
				after++
				dst = append(dst, -1)
				continue
			}

			if v := uint64(values[i]); v < uint64(width) {
				dst = append(dst, int(v))
				continue
			}
			after++
			dst = append(dst, -1)
		}
		return dst, before, after
	}
}
