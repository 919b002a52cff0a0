package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/grafana/arraykernels/pkg/internal/unsafecast"
)

// Numeric is the set of Go types backing [KindNumeric] arrays.
type Numeric interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// PhysicalType returns the storage type of dt. Temporal types map to the
// integer type they are stored as, and string types map to binary.
func PhysicalType(dt arrow.DataType) arrow.DataType {
	switch dt.ID() {
	case arrow.DATE32, arrow.TIME32:
		return arrow.PrimitiveTypes.Int32
	case arrow.DATE64, arrow.TIME64, arrow.TIMESTAMP, arrow.DURATION:
		return arrow.PrimitiveTypes.Int64
	case arrow.STRING:
		return arrow.BinaryTypes.Binary
	case arrow.LARGE_STRING:
		return arrow.BinaryTypes.LargeBinary
	default:
		return dt
	}
}

// ToPhysical returns arr reinterpreted as [PhysicalType]. The result shares
// buffers with arr and must be released by the caller.
func ToPhysical(arr arrow.Array) arrow.Array {
	return reinterpret(arr, PhysicalType(arr.DataType()))
}

// FromPhysicalUnchecked reinterprets arr as the logical type dt without
// validating its contents: binary data reinterpreted as a string is not
// checked for UTF-8. dt must have the same physical layout as arr. The result
// must be released by the caller.
func FromPhysicalUnchecked(arr arrow.Array, dt arrow.DataType) arrow.Array {
	return reinterpret(arr, dt)
}

func reinterpret(arr arrow.Array, dt arrow.DataType) arrow.Array {
	if arrow.TypeEqual(arr.DataType(), dt) {
		arr.Retain()
		return arr
	}

	src := arr.Data()
	data := array.NewData(dt, src.Len(), src.Buffers(), src.Children(), src.NullN(), src.Offset())
	defer data.Release()
	return array.MakeFromData(data)
}

// Values returns the values buffer of a numeric array as a slice of T,
// adjusted for the array's offset. T must match the physical type of arr.
func Values[T Numeric](arr arrow.Array) []T {
	data := arr.Data()
	bufs := data.Buffers()
	if len(bufs) < 2 || bufs[1] == nil {
		return nil
	}

	values := unsafecast.Slice[byte, T](bufs[1].Bytes())
	return values[data.Offset() : data.Offset()+data.Len()]
}
