package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
)

// ConvertParseError turns a grammar- or conversion-stage failure into a
// single-element diagnostic list. It accepts either a raw
// participle.Error (grammar stage) or an errors.CompilerError
// (conversion stage, e.g. an out-of-range register).
func ConvertParseError(err error) []protocol.Diagnostic {
	if ce, ok := err.(errors.CompilerError); ok {
		return []protocol.Diagnostic{diagnosticAt(ce.Position, ce.Message, "ebpfvc-parser")}
	}
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		return []protocol.Diagnostic{diagnosticAt(ast.Position{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
		}, pe.Message(), "ebpfvc-parser")}
	}
	return []protocol.Diagnostic{diagnosticAt(ast.Position{Line: 1, Column: 1}, err.Error(), "ebpfvc-parser")}
}

// ConvertBuildError turns a control-flow-graph build failure into a
// diagnostic. cfg.Build reports every failure as an errors.CompilerError;
// an undefined jump-target label is reported with a zero-value Position
// (it is detected after the line pass, when no line is at hand), so such
// errors are anchored at the top of the file.
func ConvertBuildError(err error) []protocol.Diagnostic {
	if ce, ok := err.(errors.CompilerError); ok {
		return []protocol.Diagnostic{diagnosticAt(ce.Position, ce.Message, "ebpfvc-cfg")}
	}
	return []protocol.Diagnostic{diagnosticAt(ast.Position{Line: 1, Column: 1}, err.Error(), "ebpfvc-cfg")}
}

func diagnosticAt(pos ast.Position, message, source string) protocol.Diagnostic {
	line := pos.Line
	if line < 1 {
		line = 1
	}
	col := pos.Column
	if col < 1 {
		col = 1
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)},
			End:   protocol.Position{Line: uint32(line - 1), Character: uint32(col + 5)},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(source),
		Message:  message,
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
