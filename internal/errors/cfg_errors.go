package errors

import (
	"fmt"
	"strings"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
)

// SemanticErrorBuilder provides a fluent interface for constructing a
// CompilerError with optional suggestions, notes and help text.
type SemanticErrorBuilder struct {
	err CompilerError
}

// NewSemanticError creates a new error builder.
func NewSemanticError(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span.
func (b *SemanticErrorBuilder) WithLength(length int) *SemanticErrorBuilder {
	b.err.Length = length
	return b
}

// WithSuggestion adds a suggestion to the error.
func (b *SemanticErrorBuilder) WithSuggestion(message string) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithNote adds a note to the error.
func (b *SemanticErrorBuilder) WithNote(note string) *SemanticErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error.
func (b *SemanticErrorBuilder) WithHelp(help string) *SemanticErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compiler error.
func (b *SemanticErrorBuilder) Build() CompilerError {
	return b.err
}

// NoExit reports a module whose final line is not exit.
func NoExit(pos ast.Position) CompilerError {
	return NewSemanticError(ErrNoExit, "program does not end in exit", pos).
		WithSuggestion("add an `exit` line after the final instruction").
		WithHelp("every control-flow path through the module must terminate in exit").
		Build()
}

// DuplicateLabel reports a label used to finish a block twice.
func DuplicateLabel(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrDuplicateLabel, fmt.Sprintf("duplicate label '%s'", name), pos).
		WithLength(len(name)).
		WithSuggestion(fmt.Sprintf("rename one of the two '%s:' definitions", name)).
		WithNote("labels must be unique within a module").
		Build()
}

// NoLabel reports a jump to a label the module never defines, with
// Levenshtein-based suggestions drawn from the labels that do exist.
func NoLabel(name string, pos ast.Position, knownLabels []string) CompilerError {
	builder := NewSemanticError(ErrNoLabel, fmt.Sprintf("jump to undefined label '%s'", name), pos).
		WithLength(len(name))

	similar := findSimilarNames(name, knownLabels)
	switch len(similar) {
	case 0:
		builder = builder.WithSuggestion("check that the label is spelled correctly and defined somewhere in the module")
	case 1:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	default:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
	}
	return builder.Build()
}

// JumpBounds reports an offset-form jump target outside the line range.
func JumpBounds(target, bound int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrJumpBounds, fmt.Sprintf("jump target %d is out of range [0, %d)", target, bound), pos).
		WithSuggestion("use a label instead of a raw offset for this jump").
		WithHelp("offset-form jumps are positional and must land within the module's line count").
		Build()
}

// MisplacedRequire reports a `;# req` annotation after the current
// block's body has already started.
func MisplacedRequire(pos ast.Position) CompilerError {
	return NewSemanticError(ErrMisplacedRequire, "require annotation after block body has started", pos).
		WithSuggestion("move this `;# req` line to immediately after the block's label").
		WithNote("an invariant can only be attached while the block body is still empty").
		Build()
}

// Unsupported reports an instruction or operand width this core does not
// model.
func Unsupported(instr string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrUnsupported, fmt.Sprintf("unsupported instruction: %s", instr), pos).
		WithHelp("only 64-bit ALU ops, loads/stores, direct and conditional jumps, call, and an immediate load are modeled").
		Build()
}

// UnsupportedComparison reports a comparison code a back-end printer has
// no lowering for.
func UnsupportedComparison(cc string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrUnsupportedComparison, fmt.Sprintf("comparison code '%s' is not supported by this back-end", cc), pos).
		WithHelp("signed inequalities and the bit-test 'set' are known gaps in the SMT-LIB printer").
		Build()
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// levenshteinDistance is a standard edit-distance implementation, used to
// suggest a nearby label name when a jump target is undefined.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
