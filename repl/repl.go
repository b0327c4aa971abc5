// Package repl is a small interactive session over the same pipeline
// cmd/ebpfvc drives from the command line: ":load <file>" runs parse →
// CFG build → VC collection → print on a file, and ":backend <name>"
// switches the printer used for subsequent loads, without needing to
// re-invoke the CLI for every edit of a loop invariant.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ebpf-vc/ebpfvc/internal/cfg"
	"github.com/ebpf-vc/ebpfvc/internal/config"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/parser"
	"github.com/ebpf-vc/ebpfvc/internal/printer"
	"github.com/ebpf-vc/ebpfvc/internal/vc"
)

const prompt = ">> "

// Start runs the session until in is exhausted, reading one command per
// line and writing all output (prompts, results, errors) to out.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	backend := config.BackendWhyML

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == ":quit" || line == ":q":
			return
		case strings.HasPrefix(line, ":backend"):
			name := strings.TrimSpace(strings.TrimPrefix(line, ":backend"))
			b, err := config.ParseBackend(name)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			backend = b
		case strings.HasPrefix(line, ":load"):
			path := strings.TrimSpace(strings.TrimPrefix(line, ":load"))
			if path == "" {
				fmt.Fprintln(out, "usage: :load <file>")
				continue
			}
			runFile(out, path, backend)
		default:
			fmt.Fprintf(out, "unknown command %q (try :load <file>, :backend <whyml|smtlib>, :quit)\n", line)
		}
	}
}

func runFile(out io.Writer, path string, backend config.Backend) {
	fb := logic.NewBuilder()

	mod, err := parser.ParseFile(fb, path)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}

	graph, err := cfg.Build(*mod, fb)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}

	obligations := vc.Collect(fb, graph)

	switch backend {
	case config.BackendSMTLIB:
		rendered, err := printer.SMTLIB(obligations)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		fmt.Fprintln(out, rendered)
	default:
		fmt.Fprintln(out, printer.WhyML(obligations))
	}
}
