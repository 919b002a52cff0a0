package engine

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/compute"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T, cfg Config, logger log.Logger) (*Engine, memory.Allocator) {
	t.Helper()

	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	e, err := New(Params{
		Logger:    logger,
		Allocator: mem,
		Config:    cfg,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, mem
}

func newColumn(t *testing.T, mem memory.Allocator, name string, dt arrow.DataType, input string) *columnar.Column {
	t.Helper()

	arr, _, err := array.FromJSON(mem, dt, strings.NewReader(input))
	require.NoError(t, err)
	return columnar.NewColumn(name, arr)
}

func requireJSON(t *testing.T, expect string, col *columnar.Column) {
	t.Helper()

	actual, err := col.Values().MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, expect, string(actual))
}

func TestEngine_Call(t *testing.T) {
	e, mem := newTestEngine(t, Config{Ddof: 1}, nil)
	ctx := context.Background()

	col := newColumn(t, mem, "values", arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Int64), `[[1, 2, 3], [4, 5, 6], null]`)
	defer col.Release()

	out, err := e.Call(ctx, FunctionMax, []*columnar.Column{col}, e.DefaultOptions())
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, "values", out.Name())
	requireJSON(t, `[3, 6, null]`, out)

	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.callsTotal.WithLabelValues("max", statusSuccess)))
	require.Equal(t, 3.0, testutil.ToFloat64(e.metrics.rowsTotal.WithLabelValues("max")))
}

func TestEngine_CallErrors(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	ctx := context.Background()

	col := newColumn(t, mem, "values", arrow.FixedSizeListOf(2, arrow.BinaryTypes.String), `[["a", "b"]]`)
	defer col.Release()

	t.Run("kernel error", func(t *testing.T) {
		_, err := e.Call(ctx, FunctionSum, []*columnar.Column{col}, e.DefaultOptions())
		require.ErrorIs(t, err, compute.ErrUnsupportedDType)
		require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.callsTotal.WithLabelValues("sum", statusFailure)))
	})

	t.Run("arity", func(t *testing.T) {
		_, err := e.Call(ctx, FunctionGather, []*columnar.Column{col}, e.DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidArgs)
	})

	t.Run("missing element", func(t *testing.T) {
		_, err := e.Call(ctx, FunctionCountMatches, []*columnar.Column{col}, e.DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidArgs)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := e.Call(ctx, Function(1000), []*columnar.Column{col}, e.DefaultOptions())
		require.ErrorIs(t, err, ErrNotSupported)
	})
}

func TestEngine_Eval(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	ctx := context.Background()

	words := newColumn(t, mem, "words", arrow.FixedSizeListOf(2, arrow.BinaryTypes.String), `[["a", "b"], ["c", null]]`)
	counts := newColumn(t, mem, "counts", arrow.PrimitiveTypes.Int64, `[1, 2]`)
	batch := columnar.NewRecordBatch(2, []*columnar.Column{words, counts})
	defer batch.Release()

	separator := newColumn(t, mem, "sep", arrow.BinaryTypes.String, `["/"]`)
	defer separator.Release()

	t.Run("join", func(t *testing.T) {
		out, err := e.Eval(ctx, CallExpr{
			Function: FunctionJoin,
			Args:     []Arg{ColumnRef("words"), Literal(separator)},
			Options:  e.DefaultOptions(),
		}, batch)
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `["a/b", "c"]`, out)
	})

	t.Run("repeat_by", func(t *testing.T) {
		out, err := e.Eval(ctx, CallExpr{
			Function: FunctionRepeatBy,
			Args:     []Arg{ColumnRef("counts"), ColumnRef("counts")},
		}, batch)
		require.NoError(t, err)
		defer out.Release()
		require.Equal(t, "counts", out.Name())
		requireJSON(t, `[[1], [2, 2]]`, out)
	})

	t.Run("count_matches", func(t *testing.T) {
		opts := e.DefaultOptions()
		opts.Element = scalar.NewStringScalar("a")

		out, err := e.Eval(ctx, CallExpr{
			Function: FunctionCountMatches,
			Args:     []Arg{ColumnRef("words")},
			Options:  opts,
		}, batch)
		require.NoError(t, err)
		defer out.Release()
		requireJSON(t, `[1, 0]`, out)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := e.Eval(ctx, CallExpr{
			Function: FunctionReverse,
			Args:     []Arg{ColumnRef("nope")},
		}, batch)
		require.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestEngine_SlowCallLogging(t *testing.T) {
	var buf bytes.Buffer
	e, mem := newTestEngine(t, Config{SlowCallThreshold: time.Nanosecond}, log.NewLogfmtLogger(&buf))

	col := newColumn(t, mem, "values", arrow.FixedSizeListOf(1, arrow.PrimitiveTypes.Int64), `[[1]]`)
	defer col.Release()

	out, err := e.Call(context.Background(), FunctionReverse, []*columnar.Column{col}, Options{})
	require.NoError(t, err)
	defer out.Release()

	require.Contains(t, buf.String(), `msg="slow kernel call"`)
	require.Contains(t, buf.String(), "function=reverse")
}

func TestEngine_CallTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	e, mem := newTestEngine(t, Config{}, nil)
	ctx := context.Background()

	col := newColumn(t, mem, "values", arrow.FixedSizeListOf(2, arrow.BinaryTypes.String), `[["a", "b"], null]`)
	defer col.Release()

	out, err := e.Call(ctx, FunctionReverse, []*columnar.Column{col}, e.DefaultOptions())
	require.NoError(t, err)
	defer out.Release()

	_, err = e.Call(ctx, FunctionSum, []*columnar.Column{col}, e.DefaultOptions())
	require.ErrorIs(t, err, compute.ErrUnsupportedDType)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok, failed := spans[0], spans[1]
	require.Equal(t, "Engine.Call", ok.Name())
	require.Equal(t, codes.Ok, ok.Status().Code)
	require.Contains(t, ok.Attributes(), attribute.String("function", "reverse"))
	require.Contains(t, ok.Attributes(), attribute.Int("rows", 2))

	require.Equal(t, codes.Error, failed.Status().Code)
	require.Contains(t, failed.Attributes(), attribute.String("function", "sum"))
	require.Len(t, failed.Events(), 1)
	require.Equal(t, "exception", failed.Events()[0].Name)
}

func TestEngine_Registerer(t *testing.T) {
	reg := prometheus.NewRegistry()

	e, err := New(Params{Registerer: reg})
	require.NoError(t, err)

	e.Close()
	other, err := New(Params{Registerer: reg})
	require.NoError(t, err)
	other.Close()
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Params{Config: Config{Ddof: -1}})
	require.Error(t, err)
}

func TestFunctions(t *testing.T) {
	fns := Functions()
	require.Len(t, fns, 22)

	for _, fn := range fns {
		parsed, err := ParseFunction(fn.String())
		require.NoError(t, err)
		require.Equal(t, fn, parsed)
		require.Positive(t, fn.Arity())
	}

	_, err := ParseFunction("explode")
	require.ErrorIs(t, err, ErrNotSupported)
	require.Equal(t, "Function(0)", FunctionInvalid.String())
}

func TestConfig_RegisterFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.PanicOnError)
	cfg.RegisterFlagsWithPrefix("kernels.", fs)

	require.Equal(t, Config{Ddof: 1, SlowCallThreshold: time.Second}, cfg)

	require.NoError(t, fs.Parse([]string{"-kernels.null-on-oob", "-kernels.ddof=0"}))
	require.True(t, cfg.NullOnOOB)
	require.Equal(t, 0, cfg.Ddof)
}
