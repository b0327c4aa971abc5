// Package logic provides the typed expression and formula algebra the rest
// of the verification-condition pipeline is built over: immutable
// expression/formula trees, smart constructors, fresh-variable minting and
// capture-avoiding substitution.
package logic

import (
	"fmt"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
)

// Ident is a textual identifier. Register rN maps to the identifier "rN".
type Ident = string

// Expr is an arithmetic expression: a value, a variable, or a unary/binary
// operation over the shared ALU vocabulary.
type Expr interface {
	isExpr()
	String() string
}

// ValExpr is an immediate 64-bit value.
type ValExpr struct {
	Value isa.Imm
}

// VarExpr is a free reference to an identifier.
type VarExpr struct {
	Name Ident
}

// UnaryExpr applies a unary ALU op to a sub-expression.
type UnaryExpr struct {
	Op isa.UnAlu
	X  Expr
}

// BinaryExpr applies a binary ALU op to two sub-expressions. BinMov is a
// special case: its value is the right operand Y alone ("d := s"), not a
// function of both. The WP transformer never builds a BinMov node (it
// assigns a mov's source directly), but back-end printers still
// special-case BinMov by printing Y.
type BinaryExpr struct {
	Op   isa.BinAlu
	X, Y Expr
}

func (ValExpr) isExpr()    {}
func (VarExpr) isExpr()    {}
func (UnaryExpr) isExpr()  {}
func (BinaryExpr) isExpr() {}

func (e ValExpr) String() string { return fmt.Sprintf("%d", e.Value) }
func (e VarExpr) String() string { return e.Name }
func (e UnaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.X)
}
func (e BinaryExpr) String() string {
	if e.Op == isa.BinMov {
		return fmt.Sprintf("(mov %s)", e.Y)
	}
	return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y)
}

// ConnKind is a binary formula connective.
type ConnKind int

const (
	ConnAnd ConnKind = iota
	ConnOr
	ConnImplies
	ConnIff
	// ConnAndAsym is the asymmetric conjunction ∧_asym: in SMT-LIB output it
	// is lowered to (and φ (=> φ ψ)), so ψ is only evaluated in models where
	// φ already holds. Classically equivalent to ∧.
	ConnAndAsym
)

func (c ConnKind) String() string {
	switch c {
	case ConnAnd:
		return "∧"
	case ConnOr:
		return "∨"
	case ConnImplies:
		return "⇒"
	case ConnIff:
		return "⇔"
	case ConnAndAsym:
		return "∧⃝"
	default:
		return "?conn?"
	}
}

// QType is a quantifier kind. Quantified variables range over 64-bit
// bit-vectors.
type QType int

const (
	Forall QType = iota
	Exists
)

func (q QType) String() string {
	if q == Forall {
		return "∀"
	}
	return "∃"
}

// Formula is a first-order formula over the expression algebra plus the
// uninterpreted is_buffer predicate.
type Formula interface {
	isFormula()
	String() string
}

// BoolFormula is ⊤ or ⊥.
type BoolFormula struct {
	Value bool
}

// NotFormula is ¬φ.
type NotFormula struct {
	X Formula
}

// BinFormula is φ ★ ψ for ★ ∈ {∧, ∨, ⇒, ⇔, ∧_asym}.
type BinFormula struct {
	Op   ConnKind
	X, Y Formula
}

// QuantFormula is Q x. φ.
type QuantFormula struct {
	Q    QType
	Var  Ident
	Body Formula
}

// RelFormula is a comparison R(e1, e2).
type RelFormula struct {
	Cc   isa.Cc
	X, Y Expr
}

// IsBufferFormula asserts that [ptr, ptr+size) is a single valid buffer.
// Ptr is an identifier (not a general expression) because valid_addr
// introduces it as a fresh existentially-quantified variable and
// substitution needs to be able to rename it directly.
type IsBufferFormula struct {
	Ptr  Ident
	Size Expr
}

func (BoolFormula) isFormula()     {}
func (NotFormula) isFormula()      {}
func (BinFormula) isFormula()      {}
func (QuantFormula) isFormula()    {}
func (RelFormula) isFormula()      {}
func (IsBufferFormula) isFormula() {}

func (f BoolFormula) String() string {
	if f.Value {
		return "⊤"
	}
	return "⊥"
}
func (f NotFormula) String() string { return fmt.Sprintf("¬(%s)", f.X) }
func (f BinFormula) String() string {
	return fmt.Sprintf("(%s %s %s)", f.X, f.Op, f.Y)
}
func (f QuantFormula) String() string {
	return fmt.Sprintf("(%s %s. %s)", f.Q, f.Var, f.Body)
}
func (f RelFormula) String() string {
	return fmt.Sprintf("(%s %s %s)", f.X, f.Cc, f.Y)
}
func (f IsBufferFormula) String() string {
	return fmt.Sprintf("is_buffer(%s, %s)", f.Ptr, f.Size)
}
