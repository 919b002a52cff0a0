package compute

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/columnar/amortized"
)

// ArrayMax returns the largest element of every row of col. NaN is ignored
// unless a row holds nothing but NaN and nulls. Rows without a non-null
// element are null. The result has the element type of col.
func ArrayMax(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayExtremum(ctx, col, true)
}

// ArrayMin returns the smallest element of every row of col, like [ArrayMax].
func ArrayMin(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayExtremum(ctx, col, false)
}

func arrayExtremum(ctx context.Context, col *columnar.Column, wantMax bool) (*columnar.Column, error) {
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

	indices := array.NewInt64Builder(arrowcompute.GetAllocator(ctx))
	defer indices.Release()
	indices.Reserve(arr.Len())

	for _, row := range amortized.Rows(arr) {
		if row == nil {
			indices.AppendNull()
			continue
		}

		pos, ok := extremumPosition(ops, row.Start(), row.End(), wantMax)
		if !ok {
			indices.AppendNull()
			continue
		}
		indices.Append(int64(pos))
	}

	idx := indices.NewInt64Array()
	defer idx.Release()

	// Taking from the logical values keeps the element type.
	out, err := arrowcompute.TakeArray(ctx, arr.ListValues(), idx)
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// extremumPosition returns the position of the first largest (or smallest)
// non-null, non-NaN element in [start, end). If there is none, the position
// of the first NaN is returned.
func extremumPosition(ops elementOps, start, end int, wantMax bool) (int, bool) {
	best, firstNaN := -1, -1

	for i := start; i < end; i++ {
		switch {
		case ops.IsNull(i):
			continue
		case ops.IsNaN(i):
			if firstNaN < 0 {
				firstNaN = i
			}
			continue
		case best < 0:
			best = i
			continue
		}

		c := ops.Compare(i, best)
		if (wantMax && c > 0) || (!wantMax && c < 0) {
			best = i
		}
	}

	switch {
	case best >= 0:
		return best, true
	case firstNaN >= 0:
		return firstNaN, true
	default:
		return 0, false
	}
}

// ArrayArgMax returns the position of the first largest element within every
// row of col as an index column, with the NaN handling of [ArrayMax].
func ArrayArgMax(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayArgExtremum(ctx, col, true)
}

// ArrayArgMin returns the position of the first smallest element within
// every row of col.
func ArrayArgMin(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayArgExtremum(ctx, col, false)
}

func arrayArgExtremum(ctx context.Context, col *columnar.Column, wantMax bool) (*columnar.Column, error) {
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

	builder := columnar.NewIdxBuilder(arrowcompute.GetAllocator(ctx))
	defer builder.Release()
	builder.Reserve(arr.Len())

	for _, row := range amortized.Rows(arr) {
		if row == nil {
			builder.AppendNull()
			continue
		}

		pos, ok := extremumPosition(ops, row.Start(), row.End(), wantMax)
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(columnar.IdxSize(pos - row.Start()))
	}

	return columnar.NewColumn(col.Name(), builder.NewArray()), nil
}

// ArraySum returns the sum of the non-null elements of every row of col.
// Int8, Int16, UInt8 and UInt16 elements are summed as Int64, booleans are
// counted into an index column and other numeric types keep their type. Rows
// without a non-null element are null.
func ArraySum(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	inner := innerType(arr)
	switch {
	case inner.ID() == arrow.DURATION:
	case columnar.KindOf(inner) == columnar.KindBool:
	case columnar.KindOf(inner) == columnar.KindNumeric && arrow.TypeEqual(inner, columnar.PhysicalType(inner)):
	default:
		return nil, fmt.Errorf("%w %s in sum", ErrUnsupportedDType, inner)
	}

	var (
		mem        = arrowcompute.GetAllocator(ctx)
		checkNulls = hasInnerNulls(arr)
	)

	child := columnar.ToPhysical(arr.ListValues())
	defer child.Release()

	if bools, ok := child.(*array.Boolean); ok {
		return columnar.NewColumn(col.Name(), sumBool(mem, arr, bools, checkNulls)), nil
	}

	out, err := sumNumeric(mem, arr, child, checkNulls)
	if err != nil {
		return nil, err
	}

	if inner.ID() == arrow.DURATION {
		defer out.Release()
		return columnar.NewColumn(col.Name(), columnar.FromPhysicalUnchecked(out, inner)), nil
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// sumBool counts the true elements of every row.
func sumBool(mem memory.Allocator, arr *array.FixedSizeList, child *array.Boolean, checkNulls bool) arrow.Array {
	builder := columnar.NewIdxBuilder(mem)
	defer builder.Release()
	builder.Reserve(arr.Len())

	var (
		bits   []byte
		offset = child.Data().Offset()
	)
	if buf := child.Data().Buffers()[1]; buf != nil {
		bits = buf.Bytes()
	}

	for _, row := range amortized.Rows(arr) {
		switch {
		case row == nil, row.Len() == 0:
			builder.AppendNull()
			continue
		case !checkNulls:
			builder.Append(columnar.IdxSize(bitutil.CountSetBits(bits, offset+row.Start(), row.Len())))
			continue
		}

		var count, valid int
		for j := row.Start(); j < row.End(); j++ {
			if child.IsNull(j) {
				continue
			}
			valid++
			if child.Value(j) {
				count++
			}
		}

		if valid == 0 {
			builder.AppendNull()
			continue
		}
		builder.Append(columnar.IdxSize(count))
	}

	return builder.NewArray()
}

// ArrayMean returns the arithmetic mean of the non-null elements of every row
// as Float64.
func ArrayMean(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return floatAggregate(ctx, col, func(values []float64) (float64, bool) {
		if len(values) == 0 {
			return 0, false
		}
		return mean(values), true
	})
}

// ArrayMedian returns the median of the non-null elements of every row as
// Float64. Rows with an even number of elements average the middle two. NaN
// orders after every other value, as in [ArraySort].
func ArrayMedian(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return floatAggregate(ctx, col, func(values []float64) (float64, bool) {
		n := len(values)
		if n == 0 {
			return 0, false
		}

		slices.SortFunc(values, compareNumeric[float64])
		if n%2 == 1 {
			return values[n/2], true
		}
		return (values[n/2-1] + values[n/2]) / 2, true
	})
}

// ArrayVar returns the variance of the non-null elements of every row with
// ddof delta degrees of freedom. Rows with at most ddof elements are null.
func ArrayVar(ctx context.Context, col *columnar.Column, ddof int) (*columnar.Column, error) {
	return floatAggregate(ctx, col, func(values []float64) (float64, bool) {
		return variance(values, ddof)
	})
}

// ArrayStd returns the standard deviation of every row, like [ArrayVar].
func ArrayStd(ctx context.Context, col *columnar.Column, ddof int) (*columnar.Column, error) {
	return floatAggregate(ctx, col, func(values []float64) (float64, bool) {
		v, ok := variance(values, ddof)
		return math.Sqrt(v), ok
	})
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, ddof int) (float64, bool) {
	denom := len(values) - ddof
	if denom <= 0 {
		return 0, false
	}

	var (
		m  = mean(values)
		m2 float64
	)
	for _, v := range values {
		d := v - m
		m2 += d * d
	}
	return m2 / float64(denom), true
}

// floatAggregate reduces the non-null elements of every row, converted to
// float64, with fn. fn may reorder values.
func floatAggregate(ctx context.Context, col *columnar.Column, fn func(values []float64) (float64, bool)) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	child := columnar.ToPhysical(arr.ListValues())
	defer child.Release()

	collect, err := newFloatCollector(child)
	if err != nil {
		return nil, err
	}

	builder := array.NewFloat64Builder(arrowcompute.GetAllocator(ctx))
	defer builder.Release()
	builder.Reserve(arr.Len())

	var scratch []float64
	for _, row := range amortized.Rows(arr) {
		if row == nil {
			builder.AppendNull()
			continue
		}

		scratch = collect(row.Start(), row.End(), scratch[:0])
		v, ok := fn(scratch)
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(v)
	}

	return columnar.NewColumn(col.Name(), builder.NewArray()), nil
}
