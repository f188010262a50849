// Command hxfaces generates handler registrations for the Action and REST
// lifecycles and serves the todo demo.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pthm/hxfaces/lib/generator"
)

const version = "0.1.0"

type command struct {
	name    string
	args    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"generate", "[--dry-run] [--func NAME] [packages]", "write handlers_hx.go from //hxfaces: directives", runGenerate},
	{"clean", "[packages]", "remove generated handlers_hx.go files", runClean},
	{"serve", "[--config FILE] [--router chi|echo] [--seed=false]", "run the todo demo behind the front controller", func(args []string) error {
		return runServe(args, nil)
	}},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "hxfaces version %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(args[1:]); err != nil {
			fmt.Fprintf(stderr, "hxfaces %s: %v\n", c.name, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "hxfaces: unknown command %q\n\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	var b strings.Builder
	b.WriteString("hxfaces runs Faces-style request lifecycles with partial responses.\n\nUsage:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  hxfaces %s %s\n      %s\n", c.name, c.args, c.summary)
	}
	b.WriteString("  hxfaces version\n  hxfaces help\n")
	b.WriteString(`
Directives, placed in the doc comment of a handler function or method:
  //hxfaces:map PATTERN           /exact, /prefix/*, *.ext or regex:EXPR (required)
  //hxfaces:produces TYPE         response content type for the REST lifecycle
  //hxfaces:path PARAM [GROUP]    bind a named regex group
  //hxfaces:query PARAM [NAME]    bind a query parameter
  //hxfaces:header PARAM NAME     bind a request header
Other parameters after the context are resolved from the bean registry.

Packages default to ./... and directories starting with _ are skipped.
`)
	io.WriteString(w, b.String())
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "print what would be generated")
	funcName := fs.String("func", "", "name of the generated function")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return generator.New(generator.Options{DryRun: *dryRun, FuncName: *funcName}).Generate(packages(fs.Args())...)
}

func runClean(args []string) error {
	return generator.New(generator.Options{}).Clean(packages(args)...)
}

func packages(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}
