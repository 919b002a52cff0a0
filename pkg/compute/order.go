package compute

import (
	"context"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/columnar/amortized"
)

// SortOptions configures [ArraySort].
type SortOptions struct {
	Descending    bool
	NullsLast     bool
	MaintainOrder bool // Keep equal elements in their original order.

	// Multithreaded is accepted for compatibility with callers that set it.
	// Rows are always sorted sequentially.
	Multithreaded bool
}

// ArraySort sorts the elements within every row of col. NaN sorts after
// every other value. Null elements are placed first unless opts.NullsLast is
// set, independent of the sort direction.
func ArraySort(ctx context.Context, col *columnar.Column, opts SortOptions) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	child := columnar.ToPhysical(arr.ListValues())
	defer child.Release()

	ops, err := newElementOps(child)
	if err != nil {
		return nil, err
	}

	var start int
	compare := func(a, b int) int {
		i, j := start+a, start+b
		if ops.IsNull(i) || ops.IsNull(j) {
			return compareNullable(ops, i, j, opts.NullsLast)
		}
		if opts.Descending {
			return ops.Compare(j, i)
		}
		return ops.Compare(i, j)
	}

	out, err := amortized.MapSameShape(ctx, arr, func(row *amortized.Row, dst []int) {
		start = row.Start()
		for j := range dst {
			dst[j] = j
		}

		if opts.MaintainOrder {
			slices.SortStableFunc(dst, compare)
		} else {
			slices.SortFunc(dst, compare)
		}
	})
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// ArrayReverse reverses the order of the elements within every row of col.
func ArrayReverse(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	out, err := amortized.MapSameShape(ctx, arr, func(_ *amortized.Row, dst []int) {
		last := len(dst) - 1
		for j := range dst {
			dst[j] = last - j
		}
	})
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// ArrayShift shifts the elements within every row of col by n places. A
// positive n moves elements towards the end of the row; vacated slots are
// null. n is an integer column of length 1 or of the length of col.
//
// Special cases:
//
//   - A null shift produces a null row. A shared null shift makes every row
//     null.
//   - Shifting by the width of col or more produces rows of null elements.
func ArrayShift(ctx context.Context, col, n *columnar.Column) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	shifts, err := castToInt64(ctx, n.Values())
	if err != nil {
		return nil, err
	}
	defer shifts.Release()

	var out *array.FixedSizeList
	switch {
	case shifts.Len() == 1 && arr.Len() != 1 && shifts.IsValid(0):
		by := shifts.Value(0)
		out, err = amortized.MapSameShape(ctx, arr, func(_ *amortized.Row, dst []int) {
			shiftPositions(by, dst)
		})

	case shifts.Len() == 1 && arr.Len() != 1:
		nulls := array.NewInt64Builder(arrowcompute.GetAllocator(ctx))
		nulls.AppendNulls(arr.Len())
		params := nulls.NewInt64Array()
		nulls.Release()
		defer params.Release()

		out, err = amortized.ZipMapSameShape(ctx, arr, params, nil)

	case shifts.Len() == arr.Len():
		out, err = amortized.ZipMapSameShape(ctx, arr, shifts, func(_ *amortized.Row, by int64, dst []int) {
			shiftPositions(by, dst)
		})

	default:
		return nil, fmt.Errorf("%w: shift has length %d, expected 1 or %d", ErrLengthMismatch, shifts.Len(), arr.Len())
	}
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// shiftPositions fills dst with the source position of every slot of a row
// shifted by n.
func shiftPositions(n int64, dst []int) {
	width := int64(len(dst))
	if n >= width || n <= -width {
		for j := range dst {
			dst[j] = -1
		}
		return
	}

	for j := range dst {
		src := int64(j) - n
		if src < 0 || src >= width {
			dst[j] = -1
			continue
		}
		dst[j] = int(src)
	}
}
