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

// ArrayJoin concatenates the string elements of every row of col, placing
// separator between them. separator is a string column of length 1 or of the
// length of col.
//
// Special cases:
//
//   - A null row or a null separator produces null.
//   - A null element produces null unless ignoreNulls is set, in which case
//     it is skipped.
//   - A row whose elements are all skipped produces an empty string.
func ArrayJoin(ctx context.Context, col, separator *columnar.Column, ignoreNulls bool) (*columnar.Column, error) {
	arr, err := asArray(col)
	if err != nil {
		return nil, err
	}

	if inner := innerType(arr); !isString(inner) {
		return nil, fmt.Errorf("%w: cannot call join on array with dtype %s", ErrType, inner)
	}
	if !isString(separator.DataType()) {
		return nil, fmt.Errorf("%w: separator must be a string, got %s", ErrType, separator.DataType())
	}
	if separator.Len() != 1 && separator.Len() != arr.Len() {
		return nil, fmt.Errorf("%w: separator has length %d, expected 1 or %d", ErrLengthMismatch, separator.Len(), arr.Len())
	}

	child := columnar.ToPhysical(arr.ListValues())
	defer child.Release()
	sep := columnar.ToPhysical(separator.Values())
	defer sep.Release()

	var (
		values     = child.(binaryValues)
		separators = sep.(binaryValues)
		valid      = combineValidity(arr.Len(), arr, sep)
		work       []byte
	)

	builder := array.NewBinaryBuilder(arrowcompute.GetAllocator(ctx), arrow.BinaryTypes.Binary)
	defer builder.Release()
	builder.Reserve(arr.Len())

	for i, row := range amortized.Rows(arr) {
		if !valid.IsValid(i) {
			builder.AppendNull()
			continue
		}

		k := i
		if sep.Len() == 1 {
			k = 0
		}

		var ok bool
		work, ok = joinRow(work[:0], values, row, separators.Value(k), ignoreNulls)
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(work)
	}

	out := builder.NewArray()
	defer out.Release()
	return columnar.NewColumn(col.Name(), columnar.FromPhysicalUnchecked(out, arrow.BinaryTypes.String)), nil
}

func joinRow(dst []byte, values binaryValues, row *amortized.Row, separator []byte, ignoreNulls bool) ([]byte, bool) {
	first := true
	for j := range row.Len() {
		if row.IsNull(j) {
			if ignoreNulls {
				continue
			}
			return dst, false
		}

		if !first {
			dst = append(dst, separator...)
		}
		first = false
		dst = append(dst, values.Value(row.Start()+j)...)
	}
	return dst, true
}

func isString(dt arrow.DataType) bool {
	return dt.ID() == arrow.STRING || dt.ID() == arrow.LARGE_STRING
}
