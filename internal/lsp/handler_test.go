package lsp_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ebpf-vc/ebpfvc/internal/lsp"
)

const sampleSource = "loop:\n    add r1, 1\n    jgt r1, r2, done\n    ja loop\ndone:\n    exit\n"

func openSample(t *testing.T, handler *lsp.Handler, uri string) {
	t.Helper()
	err := handler.TextDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  uri,
			Text: sampleSource,
		},
	})
	require.NoError(t, err)
}

func TestTextDocumentDidOpenValidModule(t *testing.T) {
	handler := lsp.NewHandler()
	openSample(t, handler, "file:///valid.bpf")
}

func TestTextDocumentDidOpenSyntaxError(t *testing.T) {
	handler := lsp.NewHandler()
	err := handler.TextDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  "file:///broken.bpf",
			Text: "mov r0\nexit\n",
		},
	})
	require.NoError(t, err, "parse failures are reported as diagnostics, not returned errors")
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler()
	uri := "file:///valid.bpf"
	openSample(t, handler, uri)

	tokens, err := handler.TextDocumentSemanticTokensFull(&glsp.Context{}, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	require.NotEmpty(t, tokens.Data)

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)
	require.NotEmpty(t, decoded)

	tokenTypes := make(map[string]int)
	for _, token := range decoded {
		tokenTypes[token.Type]++
	}
	require.Greater(t, tokenTypes["label"], 0, "should have a label token for loop:/done:")
	require.Greater(t, tokenTypes["keyword"], 0, "should have keyword tokens for mnemonics")
	require.Greater(t, tokenTypes["variable"], 0, "should have variable tokens for registers")
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line,
			Char:      char,
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}
