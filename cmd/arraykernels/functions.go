package main

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/grafana/arraykernels/pkg/engine"
)

// functionsCommand lists the functions that can be evaluated.
type functionsCommand struct{}

func (cmd *functionsCommand) run(*kingpin.ParseContext) error {
	bold := color.New(color.Bold)
	bold.Println("Functions:")
	for _, fn := range engine.Functions() {
		fmt.Printf("\t%-16s %d argument(s)\n", fn, fn.Arity())
	}
	return nil
}

func addFunctionsCommand(app *kingpin.Application) {
	cmd := &functionsCommand{}
	app.Command("functions", "List the available functions.").Action(cmd.run)
}
