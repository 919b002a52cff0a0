package compute

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/internal/unsafecast"
)

// RepeatBy returns a list column whose i-th row holds s[i] repeated by[i]
// times. by is cast to the index type first. s and by must have equal
// lengths, or either of them length 1, in which case it is broadcast.
//
// Special cases:
//
//   - A null value or a null count produces a null row.
//   - A count of zero produces an empty list.
func RepeatBy(ctx context.Context, s, by *columnar.Column) (*columnar.Column, error) {
	n, ok := broadcastLen(s.Len(), by.Len())
	if !ok {
		return nil, fmt.Errorf(
			"%w: repeat_by argument and the column should have equal length, or at least one of them should have length 1. column length %d, by length %d",
			ErrLengthMismatch, s.Len(), by.Len(),
		)
	}

	switch columnar.KindOf(s.DataType()) {
	case columnar.KindBool, columnar.KindNumeric, columnar.KindBinary:
	default:
		return nil, fmt.Errorf("%w %s in repeat_by", ErrUnsupportedDType, s.DataType())
	}

	counts, err := arrowcompute.CastToType(ctx, by.Values(), columnar.IdxType)
	if err != nil {
		return nil, err
	}
	defer counts.Release()

	values := columnar.ToPhysical(s.Values())
	defer values.Release()

	plan := newRepeatPlan(n, values, counts.(*columnar.IdxArray))

	mem := arrowcompute.GetAllocator(ctx)
	child, err := repeatValues(mem, values, plan)
	if err != nil {
		return nil, err
	}
	defer child.Release()

	logical := columnar.FromPhysicalUnchecked(child, s.DataType())
	defer logical.Release()

	elem := arrow.Field{Name: "item", Type: s.DataType(), Nullable: true}
	return columnar.NewColumn(s.Name(), columnar.NewLargeList(elem, plan.offsets, plan.validity, logical)), nil
}

// repeatPlan is the output layout of RepeatBy, computed before any value is
// written.
type repeatPlan struct {
	offsets  []int64
	validity *columnar.ValidityBuilder
	scalar   bool // values has a single row broadcast to every output row.
}

// valueRow returns the row of values repeated into output row i.
func (p *repeatPlan) valueRow(i int) int {
	if p.scalar {
		return 0
	}
	return i
}

func (p *repeatPlan) rows() int  { return len(p.offsets) - 1 }
func (p *repeatPlan) total() int { return int(p.offsets[len(p.offsets)-1]) }

func newRepeatPlan(n int, values arrow.Array, counts *columnar.IdxArray) *repeatPlan {
	var (
		valid = combineValidity(n, values, counts)
		plan  = &repeatPlan{
			offsets:  make([]int64, 1, n+1),
			validity: columnar.NewValidityBuilder(n),
			scalar:   values.Len() == 1 && n != 1,
		}
		countScalar = counts.Len() == 1 && n != 1
	)

	for i := range n {
		end := plan.offsets[i]
		if valid.IsValid(i) {
			k := i
			if countScalar {
				k = 0
			}
			end += int64(counts.Value(k))
		}
		plan.offsets = append(plan.offsets, end)
		plan.validity.Append(valid.IsValid(i))
	}
	return plan
}

func repeatValues(mem memory.Allocator, values arrow.Array, plan *repeatPlan) (arrow.Array, error) {
	switch values.DataType().ID() {
	case arrow.BOOL:
		return repeatBool(mem, values.(*array.Boolean), plan), nil
	case arrow.INT8:
		return repeatNumeric[int8](mem, values, plan), nil
	case arrow.INT16:
		return repeatNumeric[int16](mem, values, plan), nil
	case arrow.INT32:
		return repeatNumeric[int32](mem, values, plan), nil
	case arrow.INT64:
		return repeatNumeric[int64](mem, values, plan), nil
	case arrow.UINT8:
		return repeatNumeric[uint8](mem, values, plan), nil
	case arrow.UINT16:
		return repeatNumeric[uint16](mem, values, plan), nil
	case arrow.UINT32:
		return repeatNumeric[uint32](mem, values, plan), nil
	case arrow.UINT64:
		return repeatNumeric[uint64](mem, values, plan), nil
	case arrow.FLOAT32:
		return repeatNumeric[float32](mem, values, plan), nil
	case arrow.FLOAT64:
		return repeatNumeric[float64](mem, values, plan), nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return repeatBinary(mem, values, plan)
	}
	return nil, fmt.Errorf("%w %s in repeat_by", ErrUnsupportedDType, values.DataType())
}

func repeatNumeric[T columnar.Numeric](mem memory.Allocator, values arrow.Array, plan *repeatPlan) arrow.Array {
	var (
		src   = columnar.Values[T](values)
		total = plan.total()
	)

	buf := memory.NewResizableBuffer(mem)
	defer buf.Release()
	buf.Resize(total * int(unsafecast.Sizeof[T]()))
	out := unsafecast.Slice[byte, T](buf.Bytes())[:total]

	for i := range plan.rows() {
		v := src[plan.valueRow(i)]
		for k := plan.offsets[i]; k < plan.offsets[i+1]; k++ {
			out[k] = v
		}
	}

	data := array.NewData(values.DataType(), total, []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

func repeatBool(mem memory.Allocator, values *array.Boolean, plan *repeatPlan) arrow.Array {
	total := plan.total()

	buf := memory.NewResizableBuffer(mem)
	defer buf.Release()
	buf.Resize(int(bitutil.BytesForBits(int64(total))))
	bits := buf.Bytes()

	for i := range plan.rows() {
		start, end := plan.offsets[i], plan.offsets[i+1]
		if end > start {
			bitutil.SetBitsTo(bits, start, end-start, values.Value(plan.valueRow(i)))
		}
	}

	data := array.NewData(arrow.FixedWidthTypes.Boolean, total, []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

func repeatBinary(mem memory.Allocator, values arrow.Array, plan *repeatPlan) (arrow.Array, error) {
	var (
		src       = values.(binaryValues)
		dataBytes int
	)
	for i := range plan.rows() {
		if count := int(plan.offsets[i+1] - plan.offsets[i]); count > 0 {
			dataBytes += count * len(src.Value(plan.valueRow(i)))
		}
	}
	if values.DataType().ID() == arrow.BINARY && dataBytes > math.MaxInt32 {
		return nil, fmt.Errorf("repeat_by output of %d bytes exceeds the capacity of %s", dataBytes, values.DataType())
	}

	builder := array.NewBinaryBuilder(mem, values.DataType().(arrow.BinaryDataType))
	defer builder.Release()
	builder.Reserve(plan.total())
	builder.ReserveData(dataBytes)

	for i := range plan.rows() {
		v := src.Value(plan.valueRow(i))
		for range plan.offsets[i+1] - plan.offsets[i] {
			builder.Append(v)
		}
	}
	return builder.NewArray(), nil
}
