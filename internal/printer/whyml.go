package printer

import (
	"fmt"
	"strings"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/vc"
)

// WhyML renders a list of obligations as a WhyML-style theory: a fixed
// preamble followed by one numbered goal per obligation, each with all
// ten registers universally quantified over uint64.
func WhyML(obligations []vc.Obligation) string {
	var sb strings.Builder
	sb.WriteString("use mach.int.UInt64\n")
	sb.WriteString("use int.Int\n")
	sb.WriteString("use int.ComputerDivision\n\n")
	sb.WriteString("predicate is_buffer (p s : uint64)\n\n")

	for i, ob := range obligations {
		fmt.Fprintf(&sb, "goal G%d: forall r0 r1 r2 r3 r4 r5 r6 r7 r8 r9 : uint64. %s\n\n",
			i+1, whymlFormula(ob.Formula))
	}
	return sb.String()
}

func whymlFormula(f logic.Formula) string {
	switch n := f.(type) {
	case logic.BoolFormula:
		if n.Value {
			return "true"
		}
		return "false"
	case logic.NotFormula:
		return fmt.Sprintf("(not %s)", whymlFormula(n.X))
	case logic.BinFormula:
		op := whymlConn(n.Op)
		if n.Op == logic.ConnAndAsym {
			// Classically equivalent to and; WhyML has no staged
			// connective, so it is printed as plain conjunction.
			return fmt.Sprintf("(%s /\\ %s)", whymlFormula(n.X), whymlFormula(n.Y))
		}
		return fmt.Sprintf("(%s %s %s)", whymlFormula(n.X), op, whymlFormula(n.Y))
	case logic.QuantFormula:
		q := "forall"
		if n.Q == logic.Exists {
			q = "exists"
		}
		return fmt.Sprintf("(%s %s : uint64. %s)", q, n.Var, whymlFormula(n.Body))
	case logic.RelFormula:
		return whymlRel(n)
	case logic.IsBufferFormula:
		return fmt.Sprintf("is_buffer %s %s", n.Ptr, whymlExpr(n.Size))
	default:
		panic(fmt.Sprintf("printer: whyml: unhandled formula node %T", f))
	}
}

func whymlConn(c logic.ConnKind) string {
	switch c {
	case logic.ConnAnd:
		return "/\\"
	case logic.ConnOr:
		return "\\/"
	case logic.ConnImplies:
		return "->"
	case logic.ConnIff:
		return "<->"
	default:
		return "/\\"
	}
}

func whymlRel(n logic.RelFormula) string {
	x, y := whymlExpr(n.X), whymlExpr(n.Y)
	switch n.Cc {
	case isa.CcEq:
		return fmt.Sprintf("(%s = %s)", x, y)
	case isa.CcNe:
		return fmt.Sprintf("(%s <> %s)", x, y)
	case isa.CcGt, isa.CcSgt:
		return fmt.Sprintf("(%s > %s)", x, y)
	case isa.CcGe, isa.CcSge:
		return fmt.Sprintf("(%s >= %s)", x, y)
	case isa.CcLt, isa.CcSlt:
		return fmt.Sprintf("(%s < %s)", x, y)
	case isa.CcLe, isa.CcSle:
		return fmt.Sprintf("(%s <= %s)", x, y)
	case isa.CcSet:
		return fmt.Sprintf("(bw_and %s %s <> 0)", x, y)
	default:
		panic(fmt.Sprintf("printer: whyml: unhandled comparison code %v", n.Cc))
	}
}

func whymlExpr(e logic.Expr) string {
	switch n := e.(type) {
	case logic.ValExpr:
		return fmt.Sprintf("%d", n.Value)
	case logic.VarExpr:
		return n.Name
	case logic.UnaryExpr:
		return fmt.Sprintf("(%s %s)", whymlUnOp(n.Op), whymlExpr(n.X))
	case logic.BinaryExpr:
		if n.Op == isa.BinMov {
			return whymlExpr(n.Y)
		}
		return fmt.Sprintf("(%s %s %s)", whymlExpr(n.X), whymlBinOp(n.Op), whymlExpr(n.Y))
	default:
		panic(fmt.Sprintf("printer: whyml: unhandled expr node %T", e))
	}
}

func whymlUnOp(op isa.UnAlu) string {
	switch op {
	case isa.UnNeg:
		return "-"
	case isa.UnLe:
		return "byteswap_le"
	case isa.UnBe:
		return "byteswap_be"
	default:
		return "?"
	}
}

func whymlBinOp(op isa.BinAlu) string {
	switch op {
	case isa.BinAdd:
		return "+"
	case isa.BinSub:
		return "-"
	case isa.BinMul:
		return "*"
	case isa.BinDiv:
		return "/"
	case isa.BinMod:
		return "mod"
	case isa.BinAnd:
		return "bw_and"
	case isa.BinOr:
		return "bw_or"
	case isa.BinXor:
		return "bw_xor"
	case isa.BinLsh:
		return "lsl"
	case isa.BinRsh:
		return "lsr"
	case isa.BinArsh:
		return "asr"
	default:
		return "?"
	}
}
