// Package columnar provides named, Arrow-backed columns and the physical
// storage categories that compute kernels dispatch on.
//
// Columns are thin wrappers around [arrow.Array]: they carry the name that
// kernels propagate to their outputs and otherwise defer to arrow-go for
// storage, validity and reference counting.
package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the physical storage category of an Arrow data type.
type Kind int

// Recognized values of [Kind].
const (
	KindNull    Kind = iota // Null storage.
	KindBool                // Bit-packed booleans.
	KindNumeric             // Fixed-width integers and floats.
	KindBinary              // Offset-addressed byte sequences.
	KindOther               // Nested, decimal and any other layout.
)

var kindStrings = map[Kind]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindNumeric: "numeric",
	KindBinary:  "binary",
	KindOther:   "other",
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// KindOf returns the physical Kind of dt. Logical types are classified by
// their physical representation, so a Date32 is [KindNumeric] and a String is
// [KindBinary].
func KindOf(dt arrow.DataType) Kind {
	switch PhysicalType(dt).ID() {
	case arrow.NULL:
		return KindNull
	case arrow.BOOL:
		return KindBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return KindNumeric
	case arrow.BINARY, arrow.LARGE_BINARY:
		return KindBinary
	default:
		return KindOther
	}
}

// A Column is a named sequence of values of one data type.
type Column struct {
	name   string
	values arrow.Array
}

// NewColumn returns a column named name over values. NewColumn takes
// ownership of the caller's reference to values.
func NewColumn(name string, values arrow.Array) *Column {
	return &Column{name: name, values: values}
}

// Name returns the name of the column.
func (c *Column) Name() string { return c.name }

// Values returns the underlying Arrow array. The array is owned by c.
func (c *Column) Values() arrow.Array { return c.values }

// DataType returns the logical data type of the column.
func (c *Column) DataType() arrow.DataType { return c.values.DataType() }

// Kind returns the physical storage category of the column.
func (c *Column) Kind() Kind { return KindOf(c.values.DataType()) }

// Len returns the number of rows in the column.
func (c *Column) Len() int { return c.values.Len() }

// NullN returns the number of null rows in the column.
func (c *Column) NullN() int { return c.values.NullN() }

// Rename returns a new column named name that shares values with c.
func (c *Column) Rename(name string) *Column {
	c.values.Retain()
	return &Column{name: name, values: c.values}
}

// Retain increases the reference count of the underlying array.
func (c *Column) Retain() { c.values.Retain() }

// Release decreases the reference count of the underlying array.
func (c *Column) Release() { c.values.Release() }

func (c *Column) String() string {
	return fmt.Sprintf("%s: %s %v", c.name, c.values.DataType(), c.values)
}
