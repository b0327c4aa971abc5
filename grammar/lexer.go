// Package grammar is the concrete-syntax layer: a stateful participle
// lexer plus a struct-tag grammar over annotated eBPF assembly. Both are
// consumed by internal/parser, which walks the resulting tree into
// internal/ast.
package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// AsmLexer tokenizes annotated assembly: instruction lines, labels, and
// the `;#`-prefixed logical annotations with their embedded formula
// mini-language. Newline is a significant token since the grammar is
// line-structured; everything else that separates tokens is elided by
// the parser built in parser.go.
var AsmLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Annotation", `;#`, nil},
		{"Comment", `;[^\n]*`, nil},

		{"Number", `0[xX][0-9a-fA-F_]+|0[bB][01_]+|[0-9][0-9_]*`, nil},
		{"Ident", `[A-Za-z_][A-Za-z0-9_]*`, nil},

		{"Iff", `<->`, nil},
		{"Ne", `<>`, nil},
		{"Le", `<=`, nil},
		{"Ge", `>=`, nil},
		{"Arrow", `->`, nil},
		{"AsymAnd", `&&`, nil},
		{"AndPrefix", `/\\`, nil},
		{"OrPrefix", `\\/`, nil},
		{"Lt", `<`, nil},
		{"Gt", `>`, nil},
		{"Eq", `=`, nil},

		{"Plus", `\+`, nil},
		{"Minus", `-`, nil},
		{"Colon", `:`, nil},
		{"Comma", `,`, nil},
		{"Dot", `\.`, nil},
		{"LParen", `\(`, nil},
		{"RParen", `\)`, nil},
		{"LBracket", `\[`, nil},
		{"RBracket", `\]`, nil},

		{"Newline", `\r?\n`, nil},
		{"Whitespace", `[ \t]+`, nil},
	},
})
