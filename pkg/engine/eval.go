package engine

import (
	"context"
	"fmt"

	"github.com/grafana/arraykernels/pkg/columnar"
)

// An Arg is an argument of a [CallExpr]: either a reference to a column of
// the evaluated batch or a literal column.
type Arg struct {
	Ref     string
	Literal *columnar.Column
}

// ColumnRef returns an Arg referring to the batch column named name.
func ColumnRef(name string) Arg { return Arg{Ref: name} }

// Literal returns an Arg evaluating to col. The caller keeps ownership of col.
func Literal(col *columnar.Column) Arg { return Arg{Literal: col} }

func (a Arg) String() string {
	if a.Literal != nil {
		return fmt.Sprintf("literal(%s)", a.Literal.DataType())
	}
	return a.Ref
}

// CallExpr is a function call over arguments.
type CallExpr struct {
	Function Function
	Args     []Arg
	Options  Options
}

// Eval resolves the arguments of expr against batch and calls its function.
func (e *Engine) Eval(ctx context.Context, expr CallExpr, batch columnar.RecordBatch) (*columnar.Column, error) {
	args := make([]*columnar.Column, 0, len(expr.Args))
	for _, arg := range expr.Args {
		if arg.Literal != nil {
			args = append(args, arg.Literal)
			continue
		}

		col, ok := batch.ColumnByName(arg.Ref)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, arg.Ref)
		}
		args = append(args, col)
	}

	return e.Call(ctx, expr.Function, args, expr.Options)
}
