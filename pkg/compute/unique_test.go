package compute

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/stretchr/testify/require"

	"github.com/grafana/arraykernels/pkg/columnar"
)

func TestArrayUnique(t *testing.T) {
	ctx, mem := newTestContext(t)

	tt := []struct {
		name         string
		elem         arrow.DataType
		width        int32
		input        string
		expectSorted string
		expectStable string
		expectCount  string
	}{
		{
			name:         "int64",
			elem:         arrow.PrimitiveTypes.Int64,
			width:        4,
			input:        `[[3, 1, 3, null], [null, 2, null, 2], null]`,
			expectSorted: `[[null, 1, 3], [null, 2], null]`,
			expectStable: `[[3, 1, null], [null, 2], null]`,
			expectCount:  `[3, 2, null]`,
		},
		{
			name:         "string",
			elem:         arrow.BinaryTypes.String,
			width:        3,
			input:        `[["b", "a", "b"], ["c", "c", "c"]]`,
			expectSorted: `[["a", "b"], ["c"]]`,
			expectStable: `[["b", "a"], ["c"]]`,
			expectCount:  `[2, 1]`,
		},
		{
			name:         "bool",
			elem:         arrow.FixedWidthTypes.Boolean,
			width:        3,
			input:        `[[true, false, true]]`,
			expectSorted: `[[false, true]]`,
			expectStable: `[[true, false]]`,
			expectCount:  `[2]`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			col := newArrayColumn(t, mem, tc.elem, tc.width, tc.input)
			defer col.Release()

			sorted, err := ArrayUnique(ctx, col)
			require.NoError(t, err)
			defer sorted.Release()
			require.Equal(t, arrow.LARGE_LIST, sorted.DataType().ID())
			requireJSON(t, tc.expectSorted, sorted)

			stable, err := ArrayUniqueStable(ctx, col)
			require.NoError(t, err)
			defer stable.Release()
			requireJSON(t, tc.expectStable, stable)

			count, err := ArrayNUnique(ctx, col)
			require.NoError(t, err)
			defer count.Release()
			require.Equal(t, columnar.IdxType, count.DataType())
			requireJSON(t, tc.expectCount, count)
		})
	}

	t.Run("NaN and signed zero", func(t *testing.T) {
		col := newFloatArrayColumn(mem, 4, math.NaN(), math.NaN(), 0, math.Copysign(0, -1))
		defer col.Release()

		count, err := ArrayNUnique(ctx, col)
		require.NoError(t, err)
		defer count.Release()
		requireJSON(t, `[2]`, count)
	})
}

func TestArrayCountMatches(t *testing.T) {
	ctx, mem := newTestContext(t)

	ints := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[[1, 2, 1], [null, 1, null], null]`)
	defer ints.Release()

	tt := []struct {
		name    string
		element scalar.Scalar
		expect  string
	}{
		{"same type", scalar.NewInt64Scalar(1), `[2, 1, null]`},
		{"cast element", scalar.NewInt32Scalar(2), `[1, 0, null]`},
		{"null element", scalar.MakeNullScalar(arrow.PrimitiveTypes.Int64), `[0, 2, null]`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ArrayCountMatches(ctx, ints, tc.element)
			require.NoError(t, err)
			defer out.Release()
			requireJSON(t, tc.expect, out)
		})
	}

	t.Run("string", func(t *testing.T) {
		col := newArrayColumn(t, mem, arrow.BinaryTypes.String, 2, `[["a", "b"], ["a", "a"]]`)
		defer col.Release()

		out, err := ArrayCountMatches(ctx, col, scalar.NewStringScalar("a"))
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[1, 2]`, out)
	})
}
