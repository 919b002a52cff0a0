package compute

import (
	"bytes"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/internal/unsafecast"
)

// elementOps gives typed access to the physical values of an array. It is
// selected once per call from the array's type, so kernels never branch on
// the type of individual elements.
type elementOps interface {
	IsNull(i int) bool
	IsNaN(i int) bool

	// Compare orders two non-null elements. NaN sorts after every other
	// value and equal to itself.
	Compare(i, j int) int
}

// keyedOps is an elementOps whose elements can be used as hash keys. Equal
// elements, including NaNs, have equal keys.
type keyedOps[K comparable] interface {
	elementOps
	Key(i int) K
}

// newElementOps returns the elementOps for the physical array arr.
func newElementOps(arr arrow.Array) (elementOps, error) {
	switch arr.DataType().ID() {
	case arrow.BOOL:
		return boolOps{arr: arr.(*array.Boolean)}, nil
	case arrow.INT8:
		return newIntOps[int8](arr), nil
	case arrow.INT16:
		return newIntOps[int16](arr), nil
	case arrow.INT32:
		return newIntOps[int32](arr), nil
	case arrow.INT64:
		return newIntOps[int64](arr), nil
	case arrow.UINT8:
		return newUintOps[uint8](arr), nil
	case arrow.UINT16:
		return newUintOps[uint16](arr), nil
	case arrow.UINT32:
		return newUintOps[uint32](arr), nil
	case arrow.UINT64:
		return newUintOps[uint64](arr), nil
	case arrow.FLOAT32:
		return newFloatOps[float32](arr), nil
	case arrow.FLOAT64:
		return newFloatOps[float64](arr), nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return binaryOps{arr: arr, values: arr.(binaryValues)}, nil
	}
	return nil, fmt.Errorf("%w %s", ErrUnsupportedDType, arr.DataType())
}

type numericOps[T columnar.Numeric] struct {
	arr    arrow.Array
	values []T
	key    func(T) uint64
}

func newIntOps[T int8 | int16 | int32 | int64](arr arrow.Array) numericOps[T] {
	return numericOps[T]{
		arr:    arr,
		values: columnar.Values[T](arr),
		key:    func(v T) uint64 { return uint64(int64(v)) },
	}
}

func newUintOps[T uint8 | uint16 | uint32 | uint64](arr arrow.Array) numericOps[T] {
	return numericOps[T]{
		arr:    arr,
		values: columnar.Values[T](arr),
		key:    func(v T) uint64 { return uint64(v) },
	}
}

func newFloatOps[T float32 | float64](arr arrow.Array) numericOps[T] {
	return numericOps[T]{
		arr:    arr,
		values: columnar.Values[T](arr),
		key:    floatKey[T],
	}
}

func (o numericOps[T]) IsNull(i int) bool { return o.arr.IsNull(i) }

func (o numericOps[T]) IsNaN(i int) bool {
	v := o.values[i]
	return v != v
}

func (o numericOps[T]) Compare(i, j int) int { return compareNumeric(o.values[i], o.values[j]) }

func (o numericOps[T]) Key(i int) uint64 { return o.key(o.values[i]) }

func compareNumeric[T columnar.Numeric](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}

	// At least one side is NaN.
	switch aNaN, bNaN := a != a, b != b; {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	default:
		return -1
	}
}

var canonicalNaN = math.Float64bits(math.NaN())

// floatKey maps every NaN to the same key and -0 to +0.
func floatKey[T float32 | float64](v T) uint64 {
	f := float64(v)
	switch {
	case f != f:
		return canonicalNaN
	case f == 0:
		return 0
	}
	return math.Float64bits(f)
}

type boolOps struct {
	arr *array.Boolean
}

func (o boolOps) IsNull(i int) bool { return o.arr.IsNull(i) }
func (o boolOps) IsNaN(int) bool    { return false }

func (o boolOps) Compare(i, j int) int {
	a, b := o.arr.Value(i), o.arr.Value(j)
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}

func (o boolOps) Key(i int) uint64 {
	if o.arr.Value(i) {
		return 1
	}
	return 0
}

// binaryValues is implemented by [array.Binary] and [array.LargeBinary].
type binaryValues interface {
	Value(i int) []byte
}

type binaryOps struct {
	arr    arrow.Array
	values binaryValues
}

func (o binaryOps) IsNull(i int) bool    { return o.arr.IsNull(i) }
func (o binaryOps) IsNaN(int) bool       { return false }
func (o binaryOps) Compare(i, j int) int { return bytes.Compare(o.values.Value(i), o.values.Value(j)) }

// Key returns a string sharing memory with the array. It must not outlive the
// array.
func (o binaryOps) Key(i int) string { return unsafecast.String(o.values.Value(i)) }
