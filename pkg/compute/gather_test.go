package compute

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"
)

func TestArrayGather(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[[1, 2, 3], null, [4, 5, 6]]`)
	defer col.Release()

	tt := []struct {
		name      string
		idxType   arrow.DataType
		idx       string
		nullOnOOB bool
		expect    string
		expectErr error
	}{
		{name: "signed", idxType: arrow.PrimitiveTypes.Int64, idx: `[0, -1]`, expect: `[[1, 3], null, [4, 6]]`},
		{name: "unsigned", idxType: arrow.PrimitiveTypes.Uint32, idx: `[2, 0]`, expect: `[[3, 1], null, [6, 4]]`},
		{name: "null index", idxType: arrow.PrimitiveTypes.Int8, idx: `[null, 0]`, expect: `[[null, 1], null, [null, 4]]`},
		{name: "out of bounds", idxType: arrow.PrimitiveTypes.Int64, idx: `[3]`, expectErr: ErrOutOfBounds},
		{name: "negative out of bounds", idxType: arrow.PrimitiveTypes.Int64, idx: `[-4]`, expectErr: ErrOutOfBounds},
		{name: "out of bounds as null", idxType: arrow.PrimitiveTypes.Uint8, idx: `[3, 1]`, nullOnOOB: true, expect: `[[null, 2], null, [null, 5]]`},
		{name: "all null", idxType: arrow.PrimitiveTypes.Int64, idx: `[null, null]`, nullOnOOB: true, expectErr: ErrAllNullIndices},
		{name: "empty signed", idxType: arrow.PrimitiveTypes.Int32, idx: `[]`, expectErr: ErrAllNullIndices},
		{name: "empty unsigned", idxType: arrow.PrimitiveTypes.Uint64, idx: `[]`, expect: `[[], null, []]`},
		{name: "unsigned nulls", idxType: arrow.PrimitiveTypes.Uint16, idx: `[null]`, expect: `[[null], null, [null]]`},
		{name: "not an index", idxType: arrow.PrimitiveTypes.Float64, idx: `[0]`, expectErr: ErrType},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			idx := newColumn(t, mem, tc.idxType, tc.idx)
			defer idx.Release()

			out, err := ArrayGather(ctx, col, idx, tc.nullOnOOB)
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			defer out.Release()

			require.Equal(t, "a", out.Name())
			require.Equal(t, arrow.LARGE_LIST, out.DataType().ID())
			requireJSON(t, tc.expect, out)
		})
	}

	t.Run("no rows to apply out of bounds indices to", func(t *testing.T) {
		nulls := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[null]`)
		defer nulls.Release()
		idx := newColumn(t, mem, arrow.PrimitiveTypes.Int64, `[7]`)
		defer idx.Release()

		out, err := ArrayGather(ctx, nulls, idx, false)
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[null]`, out)
	})
}

func TestArrayGatherRagged(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.PrimitiveTypes.Int64, 3, `[[1, 2, 3], null, [4, 5, 6], [7, 8, 9]]`)
	defer col.Release()

	idx := newColumn(t, mem, arrow.ListOf(arrow.PrimitiveTypes.Int64), `[[0, 0], [1], [-1, 5], null]`)
	defer idx.Release()

	t.Run("lenient", func(t *testing.T) {
		out, err := ArrayGather(ctx, col, idx, true)
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[[1, 1], null, [6, null], null]`, out)
	})

	t.Run("strict", func(t *testing.T) {
		_, err := ArrayGather(ctx, col, idx, false)
		require.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("length mismatch", func(t *testing.T) {
		short := newColumn(t, mem, arrow.ListOf(arrow.PrimitiveTypes.Int64), `[[0]]`)
		defer short.Release()

		_, err := ArrayGather(ctx, col, short, true)
		require.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("not an index", func(t *testing.T) {
		strs := newColumn(t, mem, arrow.ListOf(arrow.BinaryTypes.String), `[["a"], null, null, null]`)
		defer strs.Release()

		_, err := ArrayGather(ctx, col, strs, true)
		require.ErrorIs(t, err, ErrType)
	})
}

func TestArrayGet(t *testing.T) {
	ctx, mem := newTestContext(t)

	col := newArrayColumn(t, mem, arrow.BinaryTypes.String, 3, `[["a", "b", "c"], null, ["d", null, "f"]]`)
	defer col.Release()

	tt := []struct {
		name      string
		index     string
		nullOnOOB bool
		expect    string
		expectErr error
	}{
		{name: "broadcast", index: `[-1]`, expect: `["c", null, "f"]`},
		{name: "per row", index: `[0, 0, 1]`, expect: `["a", null, null]`},
		{name: "null index", index: `[null]`, expect: `[null, null, null]`},
		{name: "out of bounds as null", index: `[0, 0, 7]`, nullOnOOB: true, expect: `["a", null, null]`},
		{name: "out of bounds", index: `[0, 0, 7]`, expectErr: ErrOutOfBounds},
		{name: "length mismatch", index: `[0, 1]`, expectErr: ErrLengthMismatch},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			index := newColumn(t, mem, arrow.PrimitiveTypes.Int64, tc.index)
			defer index.Release()

			out, err := ArrayGet(ctx, col, index, tc.nullOnOOB)
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			defer out.Release()

			require.Equal(t, arrow.BinaryTypes.String, out.DataType())
			requireJSON(t, tc.expect, out)
		})
	}
}
