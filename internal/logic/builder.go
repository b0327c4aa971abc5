package logic

import (
	"fmt"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
)

// Builder is the single source of fresh names for a pipeline run and
// provides smart constructors for expressions and formulas. It is the only
// stateful piece of the formula algebra; every node it produces is an
// immutable tree, pervasively shared by callers (the same cached
// precondition formula is legitimately referenced from more than one
// place in the CFG). The builder itself needs no synchronization: the CFG
// builder and VC collector use it strictly sequentially.
type Builder struct {
	counters map[string]int
}

// NewBuilder returns a Builder with an empty counter table.
func NewBuilder() *Builder {
	return &Builder{counters: make(map[string]int)}
}

// Top returns ⊤.
func (b *Builder) Top() Formula { return BoolFormula{Value: true} }

// Bot returns ⊥.
func (b *Builder) Bot() Formula { return BoolFormula{Value: false} }

// Not returns ¬f.
func (b *Builder) Not(f Formula) Formula { return NotFormula{X: f} }

// And returns x ∧ y.
func (b *Builder) And(x, y Formula) Formula { return BinFormula{Op: ConnAnd, X: x, Y: y} }

// Or returns x ∨ y.
func (b *Builder) Or(x, y Formula) Formula { return BinFormula{Op: ConnOr, X: x, Y: y} }

// Implies returns x ⇒ y.
func (b *Builder) Implies(x, y Formula) Formula { return BinFormula{Op: ConnImplies, X: x, Y: y} }

// Iff returns x ⇔ y.
func (b *Builder) Iff(x, y Formula) Formula { return BinFormula{Op: ConnIff, X: x, Y: y} }

// AsymAnd returns the asymmetric conjunction x ∧_asym y: "use x to prove
// y". Classically equivalent to ∧; differs only under SMT-LIB lowering.
func (b *Builder) AsymAnd(x, y Formula) Formula { return BinFormula{Op: ConnAndAsym, X: x, Y: y} }

// Forall returns ∀x. f. No α-renaming happens here; hygiene is maintained
// by always substituting with fresh variables minted by Var.
func (b *Builder) Forall(x Ident, f Formula) Formula {
	return QuantFormula{Q: Forall, Var: x, Body: f}
}

// Exists returns ∃x. f.
func (b *Builder) Exists(x Ident, f Formula) Formula {
	return QuantFormula{Q: Exists, Var: x, Body: f}
}

// Rel returns the relation cc(x, y).
func (b *Builder) Rel(cc isa.Cc, x, y Expr) Formula { return RelFormula{Cc: cc, X: x, Y: y} }

// Eq returns x = y.
func (b *Builder) Eq(x, y Expr) Formula { return RelFormula{Cc: isa.CcEq, X: x, Y: y} }

// IsBuffer returns is_buffer(ptr, size).
func (b *Builder) IsBuffer(ptr Ident, size Expr) Formula {
	return IsBufferFormula{Ptr: ptr, Size: size}
}

// Val returns the constant expression i.
func (b *Builder) Val(i isa.Imm) Expr { return ValExpr{Value: i} }

// UnOp returns op(x).
func (b *Builder) UnOp(op isa.UnAlu, x Expr) Expr { return UnaryExpr{Op: op, X: x} }

// BinOp returns x op y.
func (b *Builder) BinOp(op isa.BinAlu, x, y Expr) Expr { return BinaryExpr{Op: op, X: x, Y: y} }

// Reg returns both the expression and the identifier naming register r,
// e.g. r3 -> (Var("r3"), "r3"). Register identifiers are not minted fresh:
// they are a fixed, program-wide name for each of the ten registers.
func (b *Builder) Reg(r isa.Reg) (Expr, Ident) {
	id := r.Ident()
	return VarExpr{Name: id}, id
}

// Var mints a new, unique identifier derived from base and returns both
// the expression referencing it and the identifier itself. Minting is
// monotonic: a textual base yields an infinite sequence base0, base1, ...
// with no repeats across the builder's lifetime, which is what makes
// substitution capture-avoiding without needing α-renaming.
func (b *Builder) Var(base string) (Expr, Ident) {
	n := b.counters[base]
	b.counters[base] = n + 1
	id := fmt.Sprintf("%s%d", base, n)
	return VarExpr{Name: id}, id
}

// VarIdent returns a non-fresh reference to an existing identifier.
func (b *Builder) VarIdent(id Ident) Expr { return VarExpr{Name: id} }

// Replace rewrites every free occurrence of identifier prev into new
// within a formula. It never descends into a quantifier whose bound
// identifier equals prev, which is what keeps substitution hygienic as
// long as fresh-name minting stays monotonic (see Var).
func (b *Builder) Replace(prev, new Ident, f Formula) Formula {
	switch n := f.(type) {
	case BoolFormula:
		return n
	case NotFormula:
		return NotFormula{X: b.Replace(prev, new, n.X)}
	case BinFormula:
		return BinFormula{Op: n.Op, X: b.Replace(prev, new, n.X), Y: b.Replace(prev, new, n.Y)}
	case QuantFormula:
		if n.Var == prev {
			return n
		}
		return QuantFormula{Q: n.Q, Var: n.Var, Body: b.Replace(prev, new, n.Body)}
	case RelFormula:
		return RelFormula{Cc: n.Cc, X: b.ReplaceExpr(prev, new, n.X), Y: b.ReplaceExpr(prev, new, n.Y)}
	case IsBufferFormula:
		ptr := n.Ptr
		if ptr == prev {
			ptr = new
		}
		return IsBufferFormula{Ptr: ptr, Size: b.ReplaceExpr(prev, new, n.Size)}
	default:
		panic(fmt.Sprintf("logic: Replace: unhandled formula node %T", f))
	}
}

// ReplaceExpr rewrites every free occurrence of identifier prev into new
// within an expression.
func (b *Builder) ReplaceExpr(prev, new Ident, e Expr) Expr {
	switch n := e.(type) {
	case ValExpr:
		return n
	case VarExpr:
		if n.Name == prev {
			return VarExpr{Name: new}
		}
		return n
	case UnaryExpr:
		return UnaryExpr{Op: n.Op, X: b.ReplaceExpr(prev, new, n.X)}
	case BinaryExpr:
		return BinaryExpr{Op: n.Op, X: b.ReplaceExpr(prev, new, n.X), Y: b.ReplaceExpr(prev, new, n.Y)}
	default:
		panic(fmt.Sprintf("logic: ReplaceExpr: unhandled expr node %T", e))
	}
}
