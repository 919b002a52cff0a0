package compute

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/require"
)

func TestArraySort(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 4, `[[3, null, 1, 2], null, [2, 2, null, null]]`)
	defer col.Release()

	tt := []struct {
		name   string
		opts   SortOptions
		expect string
	}{
		{"ascending", SortOptions{}, `[[null, 1, 2, 3], null, [null, null, 2, 2]]`},
		{"descending", SortOptions{Descending: true}, `[[null, 3, 2, 1], null, [null, null, 2, 2]]`},
		{"nulls last", SortOptions{NullsLast: true}, `[[1, 2, 3, null], null, [2, 2, null, null]]`},
		{"stable", SortOptions{Descending: true, NullsLast: true, MaintainOrder: true}, `[[3, 2, 1, null], null, [2, 2, null, null]]`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ArraySort(ctx, col, tc.opts)
			require.NoError(t, err)
			defer out.Release()

			require.True(t, arrow.TypeEqual(col.DataType(), out.DataType()))
			requireJSON(t, tc.expect, out)
		})
	}

	t.Run("strings", func(t *testing.T) {
		strs := newArrayColumn(t, mem, arrow.BinaryTypes.String, 3, `[["pear", "apple", "fig"]]`)
		defer strs.Release()

		out, err := ArraySort(ctx, strs, SortOptions{})
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[["apple", "fig", "pear"]]`, out)
	})

	t.Run("NaN sorts last", func(t *testing.T) {
		floats := newFloatArrayColumn(mem, 3, math.NaN(), 1, -1)
		defer floats.Release()

		out, err := ArraySort(ctx, floats, SortOptions{})
		require.NoError(t, err)
		defer out.Release()

		values := out.Values().(*array.FixedSizeList).ListValues().(*array.Float64)
		require.Equal(t, -1.0, values.Value(0))
		require.Equal(t, 1.0, values.Value(1))
		require.True(t, math.IsNaN(values.Value(2)))
	})
}

func TestArrayReverse(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[[1, 2, 3], null, [4, null, 6]]`)
	defer col.Release()

	out, err := ArrayReverse(ctx, col)
	require.NoError(t, err)
	defer out.Release()
	requireJSON(t, `[[3, 2, 1], null, [6, null, 4]]`, out)
}

func TestArrayShift(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[[1, 2, 3], [4, 5, 6], null]`)
	defer col.Release()

	tt := []struct {
		name   string
		n      string
		expect string
	}{
		{"forward", `[1]`, `[[null, 1, 2], [null, 4, 5], null]`},
		{"backward", `[-1]`, `[[2, 3, null], [5, 6, null], null]`},
		{"zero", `[0]`, `[[1, 2, 3], [4, 5, 6], null]`},
		{"beyond width", `[5]`, `[[null, null, null], [null, null, null], null]`},
		{"per row", `[2, null, 1]`, `[[null, null, 1], null, null]`},
		{"null", `[null]`, `[null, null, null]`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			n := newColumn(t, mem, arrow.PrimitiveTypes.Int64, tc.n)
			defer n.Release()

			out, err := ArrayShift(ctx, col, n)
			require.NoError(t, err)
			defer out.Release()

			require.True(t, arrow.TypeEqual(col.DataType(), out.DataType()))
			requireJSON(t, tc.expect, out)
		})
	}

	t.Run("int32 shift", func(t *testing.T) {
		n := newColumn(t, mem, arrow.PrimitiveTypes.Int32, `[-2]`)
		defer n.Release()

		out, err := ArrayShift(ctx, col, n)
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[[3, null, null], [6, null, null], null]`, out)
	})

	t.Run("length mismatch", func(t *testing.T) {
		n := newColumn(t, mem, arrow.PrimitiveTypes.Int64, `[1, 2]`)
		defer n.Release()

		_, err := ArrayShift(ctx, col, n)
		require.ErrorIs(t, err, ErrLengthMismatch)
	})
}
