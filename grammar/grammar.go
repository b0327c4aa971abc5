package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Module is the root of the concrete syntax tree: a sequence of lines,
// each of which may be blank, a preamble declaration, an annotation, a
// label, or an instruction.
type Module struct {
	Pos   lexer.Position
	Lines []*Line `( @@ Newline )* ( @@ )?`
}

// Line is one physical line. Every alternative is optional so that a
// blank line (just Newline) produces a Line with every field nil.
type Line struct {
	Pos      lexer.Position
	Preamble *Preamble `( @@`
	Require  *Require  ` | @@`
	Assert   *Assert   ` | @@`
	Label    *Label    ` | @@`
	Instr    *Instr    ` | @@ )?`
}

// Preamble is a `;# requires <formula>` or `;# ensures <formula>` line.
type Preamble struct {
	Pos     lexer.Position
	Kind    string   `";#" @( "requires" | "ensures" )`
	Formula *Formula `@@`
}

// Require is a `;# req <formula>` block-invariant line.
type Require struct {
	Pos     lexer.Position
	Formula *Formula `";#" "req" @@`
}

// Assert is a `;# assert <formula>` in-line obligation.
type Assert struct {
	Pos     lexer.Position
	Formula *Formula `";#" "assert" @@`
}

// Label is `<ident> :`.
type Label struct {
	Pos  lexer.Position
	Name string `@Ident ":"`
}

// Instr is one straight-line instruction.
type Instr struct {
	Pos    lexer.Position
	Unary  *UnaryInstr  `(  @@`
	Binary *BinaryInstr ` | @@`
	Stx    *StoreInstr  ` | @@`
	Ldx    *LoadInstr   ` | @@`
	Lddw   *LddwInstr   ` | @@`
	Call   *CallInstr   ` | @@`
	Exit   *ExitInstr   ` | @@`
	Jmp    *JmpInstr    ` | @@`
	Jcc    *JccInstr    ` | @@ )`
}

// UnaryInstr covers neg/le/be and their 32-bit variants.
type UnaryInstr struct {
	Pos lexer.Position
	Op  string `@( "neg32" | "neg" | "le32" | "le" | "be32" | "be" )`
	Dst string `@Ident`
}

// BinaryInstr covers the ALU mnemonics that take a destination register
// and a register-or-immediate source.
type BinaryInstr struct {
	Pos lexer.Position
	Op  string   `@( "mov32" | "mov" | "add32" | "add" | "sub32" | "sub" | "mul32" | "mul" | "div32" | "div" | "mod32" | "mod" | "and32" | "and" | "or32" | "or" | "xor32" | "xor" | "lsh32" | "lsh" | "rsh32" | "rsh" | "arsh32" | "arsh" )`
	Dst string   `@Ident ","`
	Src *Operand `@@`
}

// StoreInstr covers st{b,h,w,dw} (immediate source) and stx{b,h,w,dw}
// (register source): `st<w> [mem], src`.
type StoreInstr struct {
	Pos lexer.Position
	Op  string   `@( "stxdw" | "stxw" | "stxh" | "stxb" | "stdw" | "stw" | "sth" | "stb" )`
	Mem *Mem     `@@ ","`
	Src *Operand `@@`
}

// LoadInstr covers ldx{b,h,w,dw}: `ldx<w> dst, [mem]`.
type LoadInstr struct {
	Pos lexer.Position
	Op  string `@( "ldxdw" | "ldxw" | "ldxh" | "ldxb" )`
	Dst string `@Ident ","`
	Mem *Mem   `@@`
}

// LddwInstr is the wide immediate load: either a plain constant or an
// opaque map-file-descriptor load, `lddw dst, map_fd(imm)`.
type LddwInstr struct {
	Pos   lexer.Position
	Dst   string `"lddw" @Ident ","`
	MapFd *Imm   `( "map_fd" "(" @@ ")"`
	Plain *Imm   ` | @@ )`
}

// CallInstr is `call <imm>`.
type CallInstr struct {
	Pos lexer.Position
	Imm *Imm `"call" @@`
}

// ExitInstr is the bare `exit` instruction.
type ExitInstr struct {
	Pos  lexer.Position
	Bare bool `@"exit"`
}

// JmpInstr is the unconditional jump `ja <target>`.
type JmpInstr struct {
	Pos    lexer.Position
	Target *Target `"ja" @@`
}

// JccInstr is a conditional jump `j<cc> a, b, target`.
type JccInstr struct {
	Pos    lexer.Position
	Cc     string   `@( "jeq" | "jgt" | "jge" | "jlt" | "jle" | "jset" | "jne" | "jsgt" | "jsge" | "jslt" | "jsle" )`
	A      string   `@Ident ","`
	B      *Operand `@@ ","`
	Target *Target  `@@`
}

// Operand is a register-or-immediate source.
type Operand struct {
	Pos lexer.Position
	Reg *string `(  @Ident`
	Imm *Imm    ` | @@ )`
}

// Target is a jump destination: a label name or a signed offset.
type Target struct {
	Pos   lexer.Position
	Label *string `(  @Ident`
	Imm   *Imm    ` | @@ )`
}

// Mem is a memory reference `[rN]` or `[rN ± off]`.
type Mem struct {
	Pos  lexer.Position
	Reg  string  `"[" @Ident`
	Sign *string `[ @( "+" | "-" )`
	Off  *Imm    `  @@ ] "]"`
}

// Imm is a 64-bit immediate: optional sign, then a decimal, 0x, or 0b
// literal (underscores permitted as digit separators).
type Imm struct {
	Pos  lexer.Position
	Sign *string `[ @( "+" | "-" ) ]`
	Num  string  `@Number`
}

// Formula is one node of the logical annotation mini-language.
type Formula struct {
	Pos      lexer.Position
	True     bool       `(  @"true"`
	False    bool       ` | @"false"`
	Not      *Formula   ` | "not" "(" @@ ")"`
	And      *ConnPair  ` | "/\\" "(" @@ ")"`
	Or       *ConnPair  ` | "\\/" "(" @@ ")"`
	Implies  *ConnPair  ` | "->" "(" @@ ")"`
	Iff      *ConnPair  ` | "<->" "(" @@ ")"`
	AsymAnd  *ConnPair  ` | "&&" "(" @@ ")"`
	Forall   *QuantBody ` | "forall" @@`
	Exists   *QuantBody ` | "exists" @@`
	IsBuffer *IsBuffer  ` | @@`
	Rel      *RelExpr   ` | @@ )`
}

// ConnPair is the shared `(φ, ψ)` shape of every binary connective.
type ConnPair struct {
	Pos lexer.Position
	X   *Formula `@@ ","`
	Y   *Formula `@@`
}

// QuantBody is `x. φ`, the tail of a `forall`/`exists` binder.
type QuantBody struct {
	Pos  lexer.Position
	Var  string   `@Ident "."`
	Body *Formula `@@`
}

// IsBuffer is `is_buffer(ptr, size)`.
type IsBuffer struct {
	Pos  lexer.Position
	Ptr  string `"is_buffer" "(" @Ident ","`
	Size *Expr  `@@ ")"`
}

// RelExpr is a relation `e op e`.
type RelExpr struct {
	Pos lexer.Position
	X   *Expr  `@@`
	Op  string `@( "<>" | "<=" | ">=" | "=" | "<" | ">" )`
	Y   *Expr  `@@`
}

// Expr is an arithmetic expression over the shared ALU vocabulary,
// written prefix-call style: `add(e, e)`, `neg(e)`.
type Expr struct {
	Pos   lexer.Position
	Un    *UnApp   `(  @@`
	Bin   *BinApp  ` | @@`
	Val   *Imm     ` | @@`
	Ident *string  ` | @Ident`
	Paren *Expr    ` | "(" @@ ")" )`
}

// UnApp is a unary-operator application `neg(e)`.
type UnApp struct {
	Pos lexer.Position
	Op  string `@( "neg" | "le" | "be" )`
	X   *Expr  `"(" @@ ")"`
}

// BinApp is a binary-operator application `add(e, e)`.
type BinApp struct {
	Pos lexer.Position
	Op  string `@( "add" | "sub" | "mul" | "div" | "mod" | "and" | "or" | "xor" | "lsh" | "rsh" | "arsh" )`
	X   *Expr  `"(" @@ ","`
	Y   *Expr  `@@ ")"`
}
