package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
)

func TestErrorReporter(t *testing.T) {
	source := `start:
    mov r0, 1
    jmp missing
    exit`

	reporter := NewErrorReporter("test.bpf", source)

	err := NoLabel("missing", ast.Position{Line: 3, Column: 9}, []string{"start", "missing_data"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrNoLabel+"]")
	assert.Contains(t, formatted, "undefined label")
	assert.Contains(t, formatted, "missing")
	assert.Contains(t, formatted, "test.bpf:3:9")
	assert.Contains(t, formatted, "did you mean")
}

func TestNoLabelErrorSuggestsClosestMatch(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := NoLabel("loob", pos, []string{"loop", "done"})
	assert.Equal(t, ErrNoLabel, err.Code)
	assert.Contains(t, err.Message, "loob")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "did you mean 'loop'")

	err = NoLabel("xyz", pos, []string{"loop", "done"})
	assert.Contains(t, err.Suggestions[0].Message, "spelled correctly")
}

func TestNoExitError(t *testing.T) {
	pos := ast.Position{Line: 4, Column: 1}
	err := NoExit(pos)
	assert.Equal(t, ErrNoExit, err.Code)
	assert.Contains(t, err.Message, "does not end in exit")
}

func TestDuplicateLabelError(t *testing.T) {
	pos := ast.Position{Line: 2, Column: 1}
	err := DuplicateLabel("L1", pos)
	assert.Equal(t, ErrDuplicateLabel, err.Code)
	assert.Contains(t, err.Message, "L1")
}

func TestMisplacedRequireError(t *testing.T) {
	pos := ast.Position{Line: 6, Column: 1}
	err := MisplacedRequire(pos)
	assert.Equal(t, ErrMisplacedRequire, err.Code)
	assert.Contains(t, err.Message, "require")
}

func TestUnsupportedComparisonError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 1}
	err := UnsupportedComparison("sgt", pos)
	assert.Equal(t, ErrUnsupportedComparison, err.Code)
	assert.Contains(t, err.HelpText, "signed")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `jmp missing_label`
	reporter := NewErrorReporter("test.bpf", source)

	marker := reporter.createMarker(5, 13, Error) // "missing_label" is 13 chars at column 5

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces) // column 5 means 4 spaces before
	carets := strings.Count(marker, "^")
	assert.Equal(t, 13, carets)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"loop_start", "loop_end", "done", "xyz"}

	similar := findSimilarNames("lop_start", candidates)
	assert.Contains(t, similar, "loop_start")
	assert.NotContains(t, similar, "xyz")

	similar = findSimilarNames("verydifferent", candidates)
	assert.Empty(t, similar)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.bpf", source)
	pos := ast.Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	errorFormatted := reporter.FormatError(errorErr)
	warningFormatted := reporter.FormatError(warningErr)

	assert.Contains(t, errorFormatted, "error:")
	assert.Contains(t, warningFormatted, "warning:")
}
