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

// ArrayAny reports whether any element of every row of col is true. ArrayAny
// returns an error if the element type of col is not boolean.
//
// Special cases:
//
//   - A null row is null.
//   - A row without a true element is null if it has a null element, and
//     false otherwise.
func ArrayAny(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return kleeneReduce(ctx, col, true)
}

// ArrayAll reports whether every element of every row of col is true.
// ArrayAll returns an error if the element type of col is not boolean.
//
// Special cases:
//
//   - A null row is null.
//   - A row without a false element is null if it has a null element, and
//     true otherwise.
func ArrayAll(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return kleeneReduce(ctx, col, false)
}

// kleeneReduce short-circuits every row on the first element equal to
// absorbing.
func kleeneReduce(ctx context.Context, col *columnar.Column, absorbing bool) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	if inner := innerType(arr); inner.ID() != arrow.BOOL {
		return nil, fmt.Errorf("%w: expected boolean elements, got %s", ErrType, inner)
	}
	values := arr.ListValues().(*array.Boolean)

	builder := array.NewBooleanBuilder(arrowcompute.GetAllocator(ctx))
	defer builder.Release()
	builder.Reserve(arr.Len())

	for _, row := range amortized.Rows(arr) {
		if row == nil {
			builder.AppendNull()
			continue
		}

		v, ok := kleeneRow(values, row.Start(), row.End(), absorbing)
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(v)
	}

	return columnar.NewColumn(col.Name(), builder.NewArray()), nil
}

func kleeneRow(values *array.Boolean, start, end int, absorbing bool) (v, ok bool) {
	sawNull := false
	for j := start; j < end; j++ {
		switch {
		case values.IsNull(j):
			sawNull = true
		case values.Value(j) == absorbing:
			return absorbing, true
		}
	}
	return !absorbing, !sawNull
}
