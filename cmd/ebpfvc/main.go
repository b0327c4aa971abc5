// Command ebpfvc parses an annotated eBPF assembly file, builds its
// control-flow graph, collects the module's proof obligations, and
// prints them in the chosen back-end's syntax.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ebpf-vc/ebpfvc/internal/cfg"
	"github.com/ebpf-vc/ebpfvc/internal/config"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/parser"
	"github.com/ebpf-vc/ebpfvc/internal/printer"
	"github.com/ebpf-vc/ebpfvc/internal/vc"
	"github.com/ebpf-vc/ebpfvc/repl"
)

var (
	flagBackend string
	flagDumpAST bool
	flagDumpCFG bool
)

func main() {
	root := &cobra.Command{
		Use:           "ebpfvc <file>",
		Short:         "generate proof obligations for annotated eBPF assembly",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}

	root.Flags().StringVar(&flagBackend, "backend", "whyml", `proof-obligation back end: "whyml" or "smtlib"`)
	root.Flags().BoolVar(&flagDumpAST, "dump-ast", false, "dump the parsed AST to stderr and exit")
	root.Flags().BoolVar(&flagDumpCFG, "dump-cfg", false, "dump the built control-flow graph to stderr and exit")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "interactively parse modules and print their obligations",
		RunE: func(cmd *cobra.Command, args []string) error {
			repl.Start(os.Stdin, os.Stdout)
			return nil
		},
	}
	root.AddCommand(replCmd)

	if err := root.Execute(); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfgOpts, err := config.New(path, flagBackend, flagDumpAST, flagDumpCFG)
	if err != nil {
		return err
	}

	fb := logic.NewBuilder()
	mod, err := parser.ParseFile(fb, cfgOpts.Path)
	if err != nil {
		return err
	}
	if cfgOpts.DumpAST {
		spew.Fdump(os.Stderr, mod)
		return nil
	}

	graph, err := cfg.Build(*mod, fb)
	if err != nil {
		return err
	}
	if cfgOpts.DumpCFG {
		spew.Fdump(os.Stderr, graph)
		return nil
	}

	obligations := vc.Collect(fb, graph)

	switch cfgOpts.Backend {
	case config.BackendWhyML:
		fmt.Println(printer.WhyML(obligations))
	case config.BackendSMTLIB:
		out, err := printer.SMTLIB(obligations)
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}

// reportFailure renders a CompilerError with the caret-style formatter
// and anything else as a plain "error: " line.
func reportFailure(err error) {
	if ce, ok := err.(errors.CompilerError); ok {
		source, readErr := os.ReadFile(ce.Position.Filename)
		if readErr == nil {
			reporter := errors.NewErrorReporter(ce.Position.Filename, string(source))
			fmt.Fprint(os.Stderr, reporter.FormatError(ce))
			return
		}
	}
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
}
