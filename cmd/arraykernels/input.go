package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/compute"
	"github.com/grafana/arraykernels/pkg/engine"
)

// input is the YAML document read by the eval command.
type input struct {
	Function string       `yaml:"function"`
	Args     []string     `yaml:"args"`
	Columns  []columnSpec `yaml:"columns"`
	Options  *optionsSpec `yaml:"options"`
}

// columnSpec describes one column. A non-zero Width makes it an array column
// of Type elements; List makes it a list column.
type columnSpec struct {
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type"`
	Width  int32       `yaml:"width"`
	List   bool        `yaml:"list"`
	Values interface{} `yaml:"values"`
}

// optionsSpec overrides the engine defaults for one call.
type optionsSpec struct {
	NullOnOOB     *bool       `yaml:"null_on_oob"`
	Ddof          *int        `yaml:"ddof"`
	Descending    bool        `yaml:"descending"`
	NullsLast     bool        `yaml:"nulls_last"`
	MaintainOrder *bool       `yaml:"maintain_order"`
	IgnoreNulls   *bool       `yaml:"ignore_nulls"`
	Element       interface{} `yaml:"element"`
}

var primitiveTypes = map[string]arrow.DataType{
	"bool":         arrow.FixedWidthTypes.Boolean,
	"int8":         arrow.PrimitiveTypes.Int8,
	"int16":        arrow.PrimitiveTypes.Int16,
	"int32":        arrow.PrimitiveTypes.Int32,
	"int64":        arrow.PrimitiveTypes.Int64,
	"uint8":        arrow.PrimitiveTypes.Uint8,
	"uint16":       arrow.PrimitiveTypes.Uint16,
	"uint32":       arrow.PrimitiveTypes.Uint32,
	"uint64":       arrow.PrimitiveTypes.Uint64,
	"float32":      arrow.PrimitiveTypes.Float32,
	"float64":      arrow.PrimitiveTypes.Float64,
	"string":       arrow.BinaryTypes.String,
	"large_string": arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,
	"date32":       arrow.FixedWidthTypes.Date32,
	"duration":     arrow.FixedWidthTypes.Duration_ms,
}

func readInput(path string) (input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return input{}, errors.Wrap(err, "reading input")
	}
	return parseInput(data)
}

func parseInput(data []byte) (input, error) {
	var in input
	if err := yaml.UnmarshalStrict(data, &in); err != nil {
		return input{}, errors.Wrap(err, "parsing input")
	}
	return in, nil
}

func (spec columnSpec) dataType() (arrow.DataType, error) {
	elem, ok := primitiveTypes[spec.Type]
	if !ok {
		return nil, fmt.Errorf("column %q: unknown type %q", spec.Name, spec.Type)
	}

	switch {
	case spec.Width > 0 && spec.List:
		return nil, fmt.Errorf("column %q: width and list are mutually exclusive", spec.Name)
	case spec.Width > 0:
		return arrow.FixedSizeListOf(spec.Width, elem), nil
	case spec.List:
		return arrow.ListOf(elem), nil
	default:
		return elem, nil
	}
}

// build returns the column described by spec.
func (spec columnSpec) build(mem memory.Allocator) (*columnar.Column, error) {
	dt, err := spec.dataType()
	if err != nil {
		return nil, err
	}

	arr, err := fromValues(mem, dt, spec.Values)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", spec.Name, err)
	}
	return columnar.NewColumn(spec.Name, arr), nil
}

// fromValues builds an array of type dt from decoded YAML values.
func fromValues(mem memory.Allocator, dt arrow.DataType, values interface{}) (arrow.Array, error) {
	if values == nil {
		values = []interface{}{}
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	arr, _, err := array.FromJSON(mem, dt, bytes.NewReader(data))
	return arr, err
}

// buildBatch builds every column of in.
func (in input) buildBatch(mem memory.Allocator) (columnar.RecordBatch, error) {
	var (
		cols  = make([]*columnar.Column, 0, len(in.Columns))
		nrows int
	)
	for _, spec := range in.Columns {
		col, err := spec.build(mem)
		if err != nil {
			columnar.NewRecordBatch(0, cols).Release()
			return columnar.RecordBatch{}, err
		}
		cols = append(cols, col)
		nrows = max(nrows, col.Len())
	}
	return columnar.NewRecordBatch(int64(nrows), cols), nil
}

// callExpr returns the call described by in. batch must have been built from
// in.
func (in input) callExpr(e *engine.Engine, batch columnar.RecordBatch) (engine.CallExpr, error) {
	fn, err := engine.ParseFunction(in.Function)
	if err != nil {
		return engine.CallExpr{}, err
	}

	expr := engine.CallExpr{Function: fn, Options: e.DefaultOptions()}
	for _, name := range in.Args {
		expr.Args = append(expr.Args, engine.ColumnRef(name))
	}

	if in.Options == nil {
		return expr, nil
	}

	opts := in.Options
	if opts.NullOnOOB != nil {
		expr.Options.NullOnOOB = *opts.NullOnOOB
	}
	if opts.Ddof != nil {
		expr.Options.Ddof = *opts.Ddof
	}
	if opts.MaintainOrder != nil {
		expr.Options.Sort.MaintainOrder = *opts.MaintainOrder
	}
	if opts.IgnoreNulls != nil {
		expr.Options.IgnoreNulls = *opts.IgnoreNulls
	}
	expr.Options.Sort.Descending = opts.Descending
	expr.Options.Sort.NullsLast = opts.NullsLast

	if opts.Element != nil && len(in.Args) > 0 {
		element, err := elementScalar(batch, in.Args[0], opts.Element)
		if err != nil {
			return engine.CallExpr{}, err
		}
		expr.Options.Element = element
	}
	return expr, nil
}

// elementScalar converts value to a scalar of the element type of the array
// column named arg. The scalar is garbage collected.
func elementScalar(batch columnar.RecordBatch, arg string, value interface{}) (scalar.Scalar, error) {
	col, ok := batch.ColumnByName(arg)
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrColumnNotFound, arg)
	}
	dt, ok := col.DataType().(*arrow.FixedSizeListType)
	if !ok {
		return nil, fmt.Errorf("%w: element requires an array column, got %s", compute.ErrType, col.DataType())
	}

	arr, err := fromValues(memory.DefaultAllocator, dt.Elem(), []interface{}{value})
	if err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	defer arr.Release()

	return scalar.GetScalar(arr, 0)
}
