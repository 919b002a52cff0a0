// Package engine evaluates calls of array kernels against columns and record
// batches. It is the entry point used by columnar expression evaluators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	arrowcompute "github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/compute"
)

var (
	// ErrNotSupported is returned for functions the engine does not know.
	ErrNotSupported = errors.New("function not supported")

	// ErrInvalidArgs is returned when a call has the wrong number of
	// arguments or lacks a required option.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrColumnNotFound is returned by [Engine.Eval] when an argument refers
	// to a column missing from the batch.
	ErrColumnNotFound = errors.New("column not found")
)

var tracer = otel.Tracer("pkg/engine")

// Params holds parameters for constructing a new [Engine].
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.
	Allocator  memory.Allocator      // Allocator for kernel results.

	Config Config // Config for the Engine.
}

// validate validates p and applies defaults.
func (p *Params) validate() error {
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Allocator == nil {
		p.Allocator = memory.DefaultAllocator
	}
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// Options holds the per-call settings of kernels. Settings that a function
// does not use are ignored.
type Options struct {
	NullOnOOB   bool                // get, gather
	Ddof        int                 // std, var
	Sort        compute.SortOptions // sort
	IgnoreNulls bool                // join
	Element     scalar.Scalar       // count_matches
}

// Engine calls kernels. It is safe for concurrent use.
type Engine struct {
	logger     log.Logger
	metrics    *metrics
	registerer prometheus.Registerer
	alloc      memory.Allocator
	cfg        Config
}

// New creates a new Engine. Its metrics are registered to
// params.Registerer until [Engine.Close] is called.
func New(params Params) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		logger:     params.Logger,
		metrics:    newMetrics(),
		registerer: params.Registerer,
		alloc:      params.Allocator,
		cfg:        params.Config,
	}
	if err := e.metrics.Register(e.registerer); err != nil {
		return nil, fmt.Errorf("registering engine metrics: %w", err)
	}
	return e, nil
}

// Close unregisters the metrics of e.
func (e *Engine) Close() { e.metrics.Unregister(e.registerer) }

// DefaultOptions returns the call options derived from the engine Config.
func (e *Engine) DefaultOptions() Options {
	return Options{
		NullOnOOB:   e.cfg.NullOnOOB,
		Ddof:        e.cfg.Ddof,
		Sort:        compute.SortOptions{MaintainOrder: e.cfg.MaintainOrder},
		IgnoreNulls: true,
	}
}

// Call runs fn over args. The result is allocated from the engine's
// allocator and must be released by the caller. Kernel errors are returned
// unchanged.
func (e *Engine) Call(ctx context.Context, fn Function, args []*columnar.Column, opts Options) (*columnar.Column, error) {
	var (
		logger = log.With(e.logger, "function", fn.String())
		start  = time.Now()
	)

	ctx, span := tracer.Start(ctx, "Engine.Call", trace.WithAttributes(
		attribute.String("function", fn.String()),
		attribute.Int("args", len(args)),
	))
	defer span.End()

	ctx = arrowcompute.WithAllocator(ctx, e.alloc)
	col, err := e.dispatch(ctx, fn, args, opts)

	duration := time.Since(start)
	e.metrics.callSeconds.WithLabelValues(fn.String()).Observe(duration.Seconds())

	if err != nil {
		e.metrics.callsTotal.WithLabelValues(fn.String(), statusFailure).Inc()
		level.Warn(logger).Log("msg", "kernel call failed", "err", err, "duration", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "kernel call failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", col.Len()))
	span.SetStatus(codes.Ok, "")

	e.metrics.callsTotal.WithLabelValues(fn.String(), statusSuccess).Inc()
	e.metrics.rowsTotal.WithLabelValues(fn.String()).Add(float64(col.Len()))

	if e.cfg.SlowCallThreshold > 0 && duration >= e.cfg.SlowCallThreshold {
		level.Warn(logger).Log("msg", "slow kernel call", "rows", col.Len(), "duration", duration)
	}
	level.Debug(logger).Log("msg", "finished kernel call", "column", col.Name(), "rows", col.Len(), "duration", duration)
	return col, nil
}

func (e *Engine) dispatch(ctx context.Context, fn Function, args []*columnar.Column, opts Options) (*columnar.Column, error) {
	if _, ok := functions[fn]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, fn)
	}
	if want := fn.Arity(); len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidArgs, fn, want, len(args))
	}

	switch fn {
	case FunctionMax:
		return compute.ArrayMax(ctx, args[0])
	case FunctionMin:
		return compute.ArrayMin(ctx, args[0])
	case FunctionSum:
		return compute.ArraySum(ctx, args[0])
	case FunctionMean:
		return compute.ArrayMean(ctx, args[0])
	case FunctionMedian:
		return compute.ArrayMedian(ctx, args[0])
	case FunctionStd:
		return compute.ArrayStd(ctx, args[0], opts.Ddof)
	case FunctionVar:
		return compute.ArrayVar(ctx, args[0], opts.Ddof)
	case FunctionUnique:
		return compute.ArrayUnique(ctx, args[0])
	case FunctionUniqueStable:
		return compute.ArrayUniqueStable(ctx, args[0])
	case FunctionNUnique:
		return compute.ArrayNUnique(ctx, args[0])
	case FunctionAny:
		return compute.ArrayAny(ctx, args[0])
	case FunctionAll:
		return compute.ArrayAll(ctx, args[0])
	case FunctionSort:
		return compute.ArraySort(ctx, args[0], opts.Sort)
	case FunctionReverse:
		return compute.ArrayReverse(ctx, args[0])
	case FunctionArgMin:
		return compute.ArrayArgMin(ctx, args[0])
	case FunctionArgMax:
		return compute.ArrayArgMax(ctx, args[0])
	case FunctionGet:
		return compute.ArrayGet(ctx, args[0], args[1], opts.NullOnOOB)
	case FunctionGather:
		return compute.ArrayGather(ctx, args[0], args[1], opts.NullOnOOB)
	case FunctionJoin:
		return compute.ArrayJoin(ctx, args[0], args[1], opts.IgnoreNulls)
	case FunctionCountMatches:
		if opts.Element == nil {
			return nil, fmt.Errorf("%w: %s requires an element", ErrInvalidArgs, fn)
		}
		return compute.ArrayCountMatches(ctx, args[0], opts.Element)
	case FunctionShift:
		return compute.ArrayShift(ctx, args[0], args[1])
	case FunctionRepeatBy:
		return compute.RepeatBy(ctx, args[0], args[1])
	}

	panic(fmt.Sprintf("unhandled function %s", fn))
}
