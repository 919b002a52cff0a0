// Command arraykernels evaluates array kernels over columns described in YAML
// files.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
)

func main() {
	app := kingpin.New("arraykernels", "A command-line tool to evaluate array kernels.")
	app.HelpFlag.Short('h')

	addEvalCommand(app)
	addFunctionsCommand(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
