package compute

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"

	"github.com/grafana/arraykernels/pkg/columnar"
)

// asArray returns the values of col as an array column.
func asArray(col *columnar.Column) (*array.FixedSizeList, error) {
	arr, ok := col.Values().(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("%w: expected array column %q, got %s", ErrType, col.Name(), col.DataType())
	}
	return arr, nil
}

// innerType returns the element type of an array column.
func innerType(arr *array.FixedSizeList) arrow.DataType {
	return arr.DataType().(*arrow.FixedSizeListType).Elem()
}

// hasInnerNulls reports whether any element referenced by a row of arr is
// null. Elements under null rows count too.
func hasInnerNulls(arr *array.FixedSizeList) bool {
	child := arr.ListValues()
	if child.NullN() == 0 || arr.Len() == 0 {
		return false
	}

	start, _ := arr.ValueOffsets(0)
	_, end := arr.ValueOffsets(arr.Len() - 1)
	n := int(end - start)
	return bitutil.CountSetBits(child.NullBitmapBytes(), child.Data().Offset()+int(start), n) < n
}

// castToInt64 returns values as an Int64 array.
func castToInt64(ctx context.Context, values arrow.Array) (*array.Int64, error) {
	if !arrow.IsInteger(values.DataType().ID()) {
		return nil, fmt.Errorf("%w: expected an integer column, got %s", ErrType, values.DataType())
	}

	out, err := arrowcompute.CastToType(ctx, values, arrow.PrimitiveTypes.Int64)
	if err != nil {
		return nil, err
	}
	return out.(*array.Int64), nil
}
