package grammar

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

var asmParser = buildParser()

func buildParser() *participle.Parser[Module] {
	p, err := participle.Build[Module](
		participle.Lexer(AsmLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(3),
	)
	if err != nil {
		panic(fmt.Errorf("grammar: failed to build parser: %w", err))
	}
	return p
}

// ParseString parses annotated assembly source into a concrete syntax
// tree. On failure the returned error is a participle.Error carrying a
// source position.
func ParseString(filename, source string) (*Module, error) {
	return asmParser.ParseString(filename, source)
}
