package compute

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/columnar/amortized"
)

// numericAppender is implemented by the arrow builders of numeric types.
type numericAppender[T columnar.Numeric] interface {
	Append(T)
	AppendNull()
}

// sumKernel sums the rows of an array column of physical type T into S.
type sumKernel[T, S columnar.Numeric] struct{}

// Do appends one sum per row of arr to out. values are the physical child
// values of arr. When checkNulls is false every element is assumed valid.
func (sumKernel[T, S]) Do(out numericAppender[S], arr *array.FixedSizeList, child arrow.Array, values []T, checkNulls bool) {
	for _, row := range amortized.Rows(arr) {
		if row == nil {
			out.AppendNull()
			continue
		}

		var (
			sum S
			n   int
		)
		for j := row.Start(); j < row.End(); j++ {
			if checkNulls && child.IsNull(j) {
				continue
			}
			sum += S(values[j])
			n++
		}

		if n == 0 {
			out.AppendNull()
			continue
		}
		out.Append(sum)
	}
}

func buildSum[T, S columnar.Numeric](mem memory.Allocator, outType arrow.DataType, arr *array.FixedSizeList, child arrow.Array, checkNulls bool) arrow.Array {
	builder := array.NewBuilder(mem, outType)
	defer builder.Release()
	builder.Reserve(arr.Len())

	sumKernel[T, S]{}.Do(builder.(numericAppender[S]), arr, child, columnar.Values[T](child), checkNulls)
	return builder.NewArray()
}

// sumNumeric sums the physical child of arr. Small integer types accumulate
// into Int64.
func sumNumeric(mem memory.Allocator, arr *array.FixedSizeList, child arrow.Array, checkNulls bool) (arrow.Array, error) {
	var (
		i64 = arrow.PrimitiveTypes.Int64
		dt  = child.DataType()
	)

	switch dt.ID() {
	case arrow.INT8:
		return buildSum[int8, int64](mem, i64, arr, child, checkNulls), nil
	case arrow.INT16:
		return buildSum[int16, int64](mem, i64, arr, child, checkNulls), nil
	case arrow.INT32:
		return buildSum[int32, int32](mem, dt, arr, child, checkNulls), nil
	case arrow.INT64:
		return buildSum[int64, int64](mem, dt, arr, child, checkNulls), nil
	case arrow.UINT8:
		return buildSum[uint8, int64](mem, i64, arr, child, checkNulls), nil
	case arrow.UINT16:
		return buildSum[uint16, int64](mem, i64, arr, child, checkNulls), nil
	case arrow.UINT32:
		return buildSum[uint32, uint32](mem, dt, arr, child, checkNulls), nil
	case arrow.UINT64:
		return buildSum[uint64, uint64](mem, dt, arr, child, checkNulls), nil
	case arrow.FLOAT32:
		return buildSum[float32, float32](mem, dt, arr, child, checkNulls), nil
	case arrow.FLOAT64:
		return buildSum[float64, float64](mem, dt, arr, child, checkNulls), nil
	}
	return nil, fmt.Errorf("%w %s", ErrUnsupportedDType, dt)
}

// floatCollector appends the non-null elements in [start, end) of a physical
// array to dst as float64. Booleans are 0 or 1.
type floatCollector func(start, end int, dst []float64) []float64

func newFloatCollector(child arrow.Array) (floatCollector, error) {
	switch child.DataType().ID() {
	case arrow.BOOL:
		bools := child.(*array.Boolean)
		return func(start, end int, dst []float64) []float64 {
			for j := start; j < end; j++ {
				switch {
				case bools.IsNull(j):
				case bools.Value(j):
					dst = append(dst, 1)
				default:
					dst = append(dst, 0)
				}
			}
			return dst
		}, nil
	case arrow.INT8:
		return collectNumeric(child, columnar.Values[int8](child)), nil
	case arrow.INT16:
		return collectNumeric(child, columnar.Values[int16](child)), nil
	case arrow.INT32:
		return collectNumeric(child, columnar.Values[int32](child)), nil
	case arrow.INT64:
		return collectNumeric(child, columnar.Values[int64](child)), nil
	case arrow.UINT8:
		return collectNumeric(child, columnar.Values[uint8](child)), nil
	case arrow.UINT16:
		return collectNumeric(child, columnar.Values[uint16](child)), nil
	case arrow.UINT32:
		return collectNumeric(child, columnar.Values[uint32](child)), nil
	case arrow.UINT64:
		return collectNumeric(child, columnar.Values[uint64](child)), nil
	case arrow.FLOAT32:
		return collectNumeric(child, columnar.Values[float32](child)), nil
	case arrow.FLOAT64:
		return collectNumeric(child, columnar.Values[float64](child)), nil
	}
	return nil, fmt.Errorf("%w %s", ErrUnsupportedDType, child.DataType())
}

func collectNumeric[T columnar.Numeric](child arrow.Array, values []T) floatCollector {
	if child.NullN() == 0 {
		return func(start, end int, dst []float64) []float64 {
			for _, v := range values[start:end] {
				dst = append(dst, float64(v))
			}
			return dst
		}
	}

	return func(start, end int, dst []float64) []float64 {
		for j := start; j < end; j++ {
			if child.IsNull(j) {
				continue
			}
			dst = append(dst, float64(values[j]))
		}
		return dst
	}
}
