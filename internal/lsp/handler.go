// Package lsp implements a language server over the same pipeline
// cmd/ebpfvc drives from the command line: on open/change it parses the
// document, builds its control-flow graph, and republishes the result
// as diagnostics.
package lsp

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ebpf-vc/ebpfvc/grammar"
	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/cfg"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/parser"
)

// SemanticTokenTypes is the LSP-required legend for the token types this
// server emits.
var SemanticTokenTypes = []string{
	"keyword",
	"variable",
	"number",
	"label",
	"comment",
}

// SemanticTokenModifiers is this server's modifier legend. Only
// "declaration" is defined; it is set on label tokens.
var SemanticTokenModifiers = []string{
	"declaration",
}

// Handler implements the LSP server handlers for annotated eBPF
// assembly modules.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	cst     map[string]*grammar.Module
	mods    map[string]*ast.Module
}

// NewHandler creates and returns a new Handler instance.
func NewHandler() *Handler {
	return &Handler{
		content: make(map[string]string),
		cst:     make(map[string]*grammar.Module),
		mods:    make(map[string]*ast.Module),
	}
}

// Initialize responds to the client's initialize request and advertises
// the server's capabilities.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("ebpfvc-lsp Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

// Initialized is called once the client has the server's capabilities.
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("ebpfvc-lsp Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request.
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("ebpfvc-lsp Shutdown")
	return nil
}

// TextDocumentDidOpen handles file open notifications.
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.reanalyze(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidClose forgets everything cached for the closed file.
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.cst, path)
	delete(h.mods, path)
	return nil
}

// TextDocumentDidChange re-parses and re-builds the document's CFG.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Servers that advertise Full sync get the whole document in the
	// last change event.
	change := params.ContentChanges[len(params.ContentChanges)-1]
	full, ok := change.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	return h.reanalyze(ctx, params.TextDocument.URI, full.Text)
}

// TextDocumentSemanticTokensFull returns syntax-highlighting tokens for
// the whole document, derived from the cached concrete syntax tree.
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.RLock()
	cst := h.cst[path]
	h.mu.RUnlock()

	tokens := collectSemanticTokens(cst)
	var data []uint32
	var prevLine, prevStart uint32
	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		deltaStart := tok.StartChar
		if deltaLine == 0 {
			deltaStart = tok.StartChar - prevStart
		}
		data = append(data, deltaLine, deltaStart, tok.Length, uint32(tok.TokenType), uint32(tok.TokenModifiers))
		prevLine, prevStart = tok.Line, tok.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

// reanalyze parses and, if that succeeds, builds the CFG for source,
// caching whichever of the CST/AST steps completed and always
// publishing whatever diagnostics result. The built CFG itself is not
// cached; it is only used to detect build failures.
func (h *Handler) reanalyze(ctx *glsp.Context, uri protocol.DocumentUri, source string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}

	h.mu.Lock()
	h.content[path] = source
	h.mu.Unlock()

	var diagnostics []protocol.Diagnostic

	cst, cstErr := grammar.ParseString(path, source)
	if cstErr != nil {
		diagnostics = ConvertParseError(cstErr)
		sendDiagnosticNotification(ctx, uri, diagnostics)
		return nil
	}

	h.mu.Lock()
	h.cst[path] = cst
	h.mu.Unlock()

	fb := logic.NewBuilder()
	mod, parseErr := parser.ParseSource(fb, path, source)
	if parseErr != nil {
		diagnostics = ConvertParseError(parseErr)
		sendDiagnosticNotification(ctx, uri, diagnostics)
		return nil
	}

	h.mu.Lock()
	h.mods[path] = mod
	h.mu.Unlock()

	if _, buildErr := cfg.Build(*mod, fb); buildErr != nil {
		diagnostics = ConvertBuildError(buildErr)
	}

	sendDiagnosticNotification(ctx, uri, diagnostics)
	return nil
}

// Convert URI to platform-local file path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to marshal diagnostics:", err)
		return
	}
	log.Println("sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
