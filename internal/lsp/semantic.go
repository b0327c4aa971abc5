package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ebpf-vc/ebpfvc/grammar"
)

// SemanticToken is a single LSP semantic token entry. Line and StartChar
// are 0-based; TokenType/TokenModifiers are indices into this server's
// advertised legend.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

func collectSemanticTokens(mod *grammar.Module) []SemanticToken {
	var tokens []SemanticToken
	if mod == nil {
		return tokens
	}
	for _, line := range mod.Lines {
		if line == nil {
			continue
		}
		switch {
		case line.Label != nil:
			tokens = append(tokens, makeToken(line.Label.Pos, line.Label.Name, "label", 1))
		case line.Preamble != nil:
			tokens = append(tokens, makeToken(line.Preamble.Pos, line.Preamble.Kind, "keyword", 0))
		case line.Require != nil:
			tokens = append(tokens, makeToken(line.Require.Pos, "req", "keyword", 0))
		case line.Assert != nil:
			tokens = append(tokens, makeToken(line.Assert.Pos, "assert", "keyword", 0))
		case line.Instr != nil:
			tokens = append(tokens, walkInstr(line.Instr)...)
		}
	}
	return tokens
}

func walkInstr(in *grammar.Instr) []SemanticToken {
	var tokens []SemanticToken
	switch {
	case in.Unary != nil:
		tokens = append(tokens, makeToken(in.Unary.Pos, in.Unary.Op, "keyword", 0))
		tokens = append(tokens, identToken(in.Unary.Pos, in.Unary.Dst))
	case in.Binary != nil:
		tokens = append(tokens, makeToken(in.Binary.Pos, in.Binary.Op, "keyword", 0))
		tokens = append(tokens, identToken(in.Binary.Pos, in.Binary.Dst))
	case in.Stx != nil:
		tokens = append(tokens, makeToken(in.Stx.Pos, in.Stx.Op, "keyword", 0))
		if in.Stx.Mem != nil {
			tokens = append(tokens, identToken(in.Stx.Mem.Pos, in.Stx.Mem.Reg))
		}
	case in.Ldx != nil:
		tokens = append(tokens, makeToken(in.Ldx.Pos, in.Ldx.Op, "keyword", 0))
		tokens = append(tokens, identToken(in.Ldx.Pos, in.Ldx.Dst))
	case in.Lddw != nil:
		tokens = append(tokens, makeToken(in.Lddw.Pos, "lddw", "keyword", 0))
		tokens = append(tokens, identToken(in.Lddw.Pos, in.Lddw.Dst))
	case in.Call != nil:
		tokens = append(tokens, makeToken(in.Call.Pos, "call", "keyword", 0))
	case in.Exit != nil:
		tokens = append(tokens, makeToken(in.Exit.Pos, "exit", "keyword", 0))
	case in.Jmp != nil:
		tokens = append(tokens, makeToken(in.Jmp.Pos, "ja", "keyword", 0))
	case in.Jcc != nil:
		tokens = append(tokens, makeToken(in.Jcc.Pos, in.Jcc.Cc, "keyword", 0))
		tokens = append(tokens, identToken(in.Jcc.Pos, in.Jcc.A))
	}
	return tokens
}

func identToken(pos lexer.Position, name string) SemanticToken {
	return makeToken(pos, name, "variable", 0)
}

func makeToken(pos lexer.Position, value, tokenType string, decl int) SemanticToken {
	return SemanticToken{
		Line:           uint32(pos.Line - 1),
		StartChar:      uint32(pos.Column - 1),
		Length:         uint32(len(value)),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: decl << indexOf("declaration", SemanticTokenModifiers),
	}
}

func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
