// Command ebpfvc-lsp runs a language server that republishes CFG-build
// diagnostics and semantic tokens for annotated eBPF assembly files over
// stdio.
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/ebpf-vc/ebpfvc/internal/lsp"
)

const lsName = "ebpfvc"

var (
	version = "0.1.0"
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	h := lsp.NewHandler()

	handler = protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("starting %s %s\n", lsName, version)

	if err := s.RunStdio(); err != nil {
		log.Println("error running ebpfvc-lsp server:", err)
		os.Exit(1)
	}
}
