// Package parser turns annotated eBPF assembly source into internal/ast's
// linear representation. It wraps the participle-based concrete syntax
// tree in grammar with a conversion pass (convert.go) that builds
// isa/logic values and resolves source positions.
package parser

import (
	"os"

	"github.com/alecthomas/participle/v2"

	"github.com/ebpf-vc/ebpfvc/grammar"
	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

// ParseFile reads and parses a file from disk.
func ParseFile(fb *logic.Builder, path string) (*ast.Module, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSource(fb, path, string(source))
}

// ParseSource parses source text into an ast.Module. Parse failures are
// returned as errors.CompilerError so callers get a consistent,
// caret-rendered diagnostic regardless of whether the failure came from
// the grammar or from a later semantic check (e.g. an out-of-range
// register) performed during conversion.
func ParseSource(fb *logic.Builder, filename, source string) (*ast.Module, error) {
	cst, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, wrapParseError(filename, err)
	}

	conv := &converter{fb: fb, filename: filename}
	mod := conv.convertModule(cst)
	if conv.err != nil {
		return nil, conv.err
	}
	return mod, nil
}

// wrapParseError adapts a participle.Error into the project's
// CompilerError so cmd/ebpfvc can render every failure the same way.
func wrapParseError(filename string, err error) error {
	pe, ok := err.(participle.Error)
	if !ok {
		return errors.NewSemanticError(errors.ErrParseFailure, err.Error(), ast.Position{Filename: filename}).Build()
	}
	pos := pe.Position()
	return errors.NewSemanticError(errors.ErrParseFailure, pe.Message(), ast.Position{
		Filename: filename,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
	}).Build()
}
