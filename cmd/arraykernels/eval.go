package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"

	"github.com/grafana/arraykernels/pkg/cfg"
	"github.com/grafana/arraykernels/pkg/columnar"
	"github.com/grafana/arraykernels/pkg/engine"
)

// config is the configuration of the eval command.
type config struct {
	Engine engine.Config `yaml:"engine"`
}

func (c *config) RegisterFlags(f *flag.FlagSet) {
	c.Engine.RegisterFlagsWithPrefix("engine.", f)
}

// loadConfig loads the config file at path, if any, and applies overrides
// of the form name=value on top.
func loadConfig(path string, overrides []string) (config, error) {
	args := make([]string, 0, len(overrides))
	for _, o := range overrides {
		args = append(args, "-"+o)
	}

	var conf config
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	if err := cfg.Parse(&conf, fs, path, args); err != nil {
		return config{}, err
	}
	return conf, nil
}

// evalCommand evaluates the function call described by an input file.
type evalCommand struct {
	input      *string
	configFile *string
	overrides  flagext.StringSliceCSV
	logLevel   *string
}

func (cmd *evalCommand) run(*kingpin.ParseContext) error {
	conf, err := loadConfig(*cmd.configFile, cmd.overrides)
	if err != nil {
		exitWithErr(fmt.Errorf("failed to load config: %w", err))
	}

	in, err := readInput(*cmd.input)
	if err != nil {
		exitWithErr(err)
	}

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	e, err := engine.New(engine.Params{
		Logger:    newLogger(*cmd.logLevel),
		Allocator: mem,
		Config:    conf.Engine,
	})
	if err != nil {
		exitWithErr(fmt.Errorf("failed to create engine: %w", err))
	}
	defer e.Close()

	out, err := evaluate(context.Background(), e, mem, in)
	if err != nil {
		exitWithErr(fmt.Errorf("failed to evaluate %s: %w", in.Function, err))
	}
	defer out.Release()

	printResult(in, out, mem.CurrentAlloc())
	return nil
}

// evaluate builds the columns of in and evaluates its call.
func evaluate(ctx context.Context, e *engine.Engine, mem memory.Allocator, in input) (*columnar.Column, error) {
	batch, err := in.buildBatch(mem)
	if err != nil {
		return nil, err
	}
	defer batch.Release()

	expr, err := in.callExpr(e, batch)
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, expr, batch)
}

func printResult(in input, out *columnar.Column, allocated int) {
	bold := color.New(color.Bold)

	bold.Println("Call:")
	fmt.Printf("\t%s(%s)\n", in.Function, strings.Join(in.Args, ", "))

	bold.Println("Result:")
	fmt.Printf("\t%s: %s, rows: %d, nulls: %d\n", out.Name(), out.DataType(), out.Len(), out.NullN())

	values, err := out.Values().MarshalJSON()
	if err != nil {
		exitWithErr(fmt.Errorf("failed to encode result: %w", err))
	}
	fmt.Printf("\t%s\n", values)
	fmt.Printf("\tallocated: %v\n", humanize.Bytes(uint64(allocated)))
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func addEvalCommand(app *kingpin.Application) {
	cmd := &evalCommand{}
	eval := app.Command("eval", "Evaluate the function call described by an input file.").Action(cmd.run)
	cmd.input = eval.Arg("input", "YAML file describing the columns and the call.").Required().ExistingFile()
	cmd.configFile = eval.Flag("config.file", "YAML configuration file.").ExistingFile()
	eval.Flag("config.set", "Comma-separated configuration flag overrides, e.g. engine.ddof=0,engine.null-on-oob=true.").SetValue(&cmd.overrides)
	cmd.logLevel = eval.Flag("log.level", "Only log messages with the given severity or above.").Default("info").Enum("debug", "info", "warn", "error")
}
