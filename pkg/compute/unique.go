package compute

import (
	"context"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/dolthub/swiss"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/columnar/amortized"
)

// ArrayUnique returns the distinct elements of every row of col as a list
// column, sorted by value with a null element first.
func ArrayUnique(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayUnique(ctx, col, true)
}

// ArrayUniqueStable returns the distinct elements of every row of col as a
// list column, in order of first occurrence.
func ArrayUniqueStable(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
	return arrayUnique(ctx, col, false)
}

func arrayUnique(ctx context.Context, col *columnar.Column, sorted bool) (*columnar.Column, error) {
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
	distinct, err := newDistinct(ops, columnar.Width(arr))
	if err != nil {
		return nil, err
	}

	out, err := amortized.MapToList(ctx, arr, func(row *amortized.Row, dst []int) []int {
		sel := distinct(row, dst)
		if sorted {
			sortPositions(ops, row.Start(), sel, false)
		}
		return sel
	})
	if err != nil {
		return nil, err
	}
	return columnar.NewColumn(col.Name(), out), nil
}

// ArrayNUnique returns the number of distinct elements of every row of col
// as an index column. Null elements count as one distinct value.
func ArrayNUnique(ctx context.Context, col *columnar.Column) (*columnar.Column, error) {
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
	distinct, err := newDistinct(ops, columnar.Width(arr))
	if err != nil {
		return nil, err
	}

	builder := columnar.NewIdxBuilder(arrowcompute.GetAllocator(ctx))
	defer builder.Release()
	builder.Reserve(arr.Len())

	var scratch []int
	for _, row := range amortized.Rows(arr) {
		if row == nil {
			builder.AppendNull()
			continue
		}
		scratch = distinct(row, scratch[:0])
		builder.Append(columnar.IdxSize(len(scratch)))
	}

	return columnar.NewColumn(col.Name(), builder.NewArray()), nil
}

// distinctFunc appends the row-relative positions of the first occurrence of
// every distinct element of row to dst. At most one null position is
// appended.
type distinctFunc func(row *amortized.Row, dst []int) []int

func newDistinct(ops elementOps, width int) (distinctFunc, error) {
	switch ops := ops.(type) {
	case keyedOps[uint64]:
		return firstOccurrences(ops, width), nil
	case keyedOps[string]:
		return firstOccurrences(ops, width), nil
	}
	return nil, fmt.Errorf("%w: elements of %T cannot be hashed", ErrUnsupportedDType, ops)
}

func firstOccurrences[K comparable](ops keyedOps[K], width int) distinctFunc {
	seen := swiss.NewMap[K, struct{}](uint32(max(width, 1)))

	return func(row *amortized.Row, dst []int) []int {
		seen.Clear()
		sawNull := false

		for j := range row.Len() {
			i := row.Start() + j
			if ops.IsNull(i) {
				if !sawNull {
					sawNull = true
					dst = append(dst, j)
				}
				continue
			}

			k := ops.Key(i)
			if seen.Has(k) {
				continue
			}
			seen.Put(k, struct{}{})
			dst = append(dst, j)
		}
		return dst
	}
}

// ArrayCountMatches counts the elements of every row of col equal to
// element. element is cast to the element type of col first. A null element
// counts the null elements of every row.
func ArrayCountMatches(ctx context.Context, col *columnar.Column, element scalar.Scalar) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	target, err := scalarArray(ctx, element, innerType(arr))
	if err != nil {
		return nil, err
	}
	defer target.Release()

	child := columnar.ToPhysical(arr.ListValues())
	defer child.Release()
	physTarget := columnar.ToPhysical(target)
	defer physTarget.Release()

	ops, err := newElementOps(child)
	if err != nil {
		return nil, err
	}
	targetOps, err := newElementOps(physTarget)
	if err != nil {
		return nil, err
	}

	var count func(start, end int) int
	switch ops := ops.(type) {
	case keyedOps[uint64]:
		count = matchCounter(ops, targetOps.(keyedOps[uint64]))
	case keyedOps[string]:
		count = matchCounter(ops, targetOps.(keyedOps[string]))
	default:
		return nil, fmt.Errorf("%w %s in count_matches", ErrUnsupportedDType, innerType(arr))
	}

	builder := columnar.NewIdxBuilder(arrowcompute.GetAllocator(ctx))
	defer builder.Release()
	builder.Reserve(arr.Len())

	for _, row := range amortized.Rows(arr) {
		if row == nil {
			builder.AppendNull()
			continue
		}
		builder.Append(columnar.IdxSize(count(row.Start(), row.End())))
	}

	return columnar.NewColumn(col.Name(), builder.NewArray()), nil
}

func matchCounter[K comparable](ops, target keyedOps[K]) func(start, end int) int {
	if target.IsNull(0) {
		return func(start, end int) (n int) {
			for i := start; i < end; i++ {
				if ops.IsNull(i) {
					n++
				}
			}
			return n
		}
	}

	key := target.Key(0)
	return func(start, end int) (n int) {
		for i := start; i < end; i++ {
			if !ops.IsNull(i) && ops.Key(i) == key {
				n++
			}
		}
		return n
	}
}

// scalarArray returns sc as a one-element array of type dt.
func scalarArray(ctx context.Context, sc scalar.Scalar, dt arrow.DataType) (arrow.Array, error) {
	arr, err := scalar.MakeArrayFromScalar(sc, 1, arrowcompute.GetAllocator(ctx))
	if err != nil {
		return nil, err
	}
	if arrow.TypeEqual(arr.DataType(), dt) {
		return arr, nil
	}
	defer arr.Release()

	return arrowcompute.CastToType(ctx, arr, dt)
}

// sortPositions sorts row-relative positions by the value they refer to.
// Null elements sort first unless nullsLast is set.
func sortPositions(ops elementOps, start int, positions []int, nullsLast bool) {
	slices.SortFunc(positions, func(a, b int) int {
		return compareNullable(ops, start+a, start+b, nullsLast)
	})
}

func compareNullable(ops elementOps, i, j int, nullsLast bool) int {
	iNull, jNull := ops.IsNull(i), ops.IsNull(j)
	switch {
	case iNull && jNull:
		return 0
	case iNull && nullsLast, jNull && !nullsLast:
		return 1
	case iNull, jNull:
		return -1
	}
	return ops.Compare(i, j)
}
