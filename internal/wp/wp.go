// Package wp computes weakest preconditions of straight-line block
// bodies with respect to a postcondition, instruction by instruction in
// reverse.
package wp

import (
	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

// validByteWidths enumerates the memory access widths valid_addr accepts.
var validByteWidths = map[int]bool{1: true, 2: true, 4: true, 8: true}

// Compute returns wp(body, post): the weakest condition that, evaluated
// before executing body in sequence, guarantees post afterward. Compute
// threads post right-to-left over body, one instruction at a time, so
// wp([], post) = post and wp(b1++b2, post) = wp(b1, wp(b2, post)) holds
// by construction.
func Compute(fb *logic.Builder, body []ast.Instr, post logic.Formula) logic.Formula {
	for i := len(body) - 1; i >= 0; i-- {
		post = step(fb, body[i], post)
	}
	return post
}

func step(fb *logic.Builder, instr ast.Instr, post logic.Formula) logic.Formula {
	switch in := instr.(type) {
	case ast.BinaryInstr:
		return binaryStep(fb, in, post)
	case ast.UnaryInstr:
		return assign(fb, in.Reg.Ident(), fb.UnOp(in.Op, regExpr(fb, in.Reg)), post)
	case ast.LoadImmInstr:
		return assign(fb, in.Dst.Ident(), fb.Val(in.Imm), post)
	case ast.LoadMapFdInstr:
		// Opaque assignment: the mapped fd value is unknown, so havoc the
		// destination existentially rather than binding it to anything.
		_, v := fb.Var("v")
		renamed := fb.Replace(in.Dst.Ident(), v, post)
		return fb.Exists(v, renamed)
	case ast.StoreInstr:
		valid := validAddr(fb, in.Size, in.Mem)
		return fb.And(valid, post)
	case ast.LoadInstr:
		valid := validAddr(fb, in.Size, in.Mem)
		havocked := havoc(fb, in.Dst.Ident(), post)
		return fb.And(valid, havocked)
	case ast.AssertInstr:
		return fb.AsymAnd(in.Formula, post)
	case ast.CallInstr:
		return callHavoc(fb, post)
	default:
		panic("wp: unhandled instruction in block body")
	}
}

func binaryStep(fb *logic.Builder, in ast.BinaryInstr, post logic.Formula) logic.Formula {
	if in.Op == isa.BinMov {
		return assign(fb, in.Dst.Ident(), in.Src.Expr(fb), post)
	}

	value := fb.BinOp(in.Op, regExpr(fb, in.Dst), in.Src.Expr(fb))
	result := assign(fb, in.Dst.Ident(), value, post)
	if !in.Op.IsDivOrMod() {
		return result
	}

	guard := fb.Rel(isa.CcNe, in.Src.Expr(fb), fb.Val(0))
	return fb.AsymAnd(guard, result)
}

// assign implements the assignment schema x := e |- forall v. v = e =>
// post[x -> v], with v freshly minted. This is logically equivalent to
// post[x -> e] but avoids substituting a potentially large expression e
// and keeps a single use of x on the right-hand side.
func assign(fb *logic.Builder, x string, e logic.Expr, post logic.Formula) logic.Formula {
	_, v := fb.Var("v")
	renamed := fb.Replace(x, v, post)
	body := fb.Implies(fb.Eq(fb.VarIdent(v), e), renamed)
	return fb.Forall(v, body)
}

// havoc universally quantifies out identifier x in post with a fresh
// variable, modeling an instruction that overwrites x with an unknown
// value (a loaded value from a validated but otherwise untracked address).
func havoc(fb *logic.Builder, x string, post logic.Formula) logic.Formula {
	_, v := fb.Var("v")
	renamed := fb.Replace(x, v, post)
	return fb.Forall(v, renamed)
}

func regExpr(fb *logic.Builder, r isa.Reg) logic.Expr {
	e, _ := fb.Reg(r)
	return e
}

// validAddr is exists p, s. is_buffer(p, s) and p <= (reg+off) and
// (reg+off) < p+s-(bytes-1): the referenced byte range [addr, addr+bytes)
// falls entirely within some known buffer. Alignment is deliberately not
// enforced here.
func validAddr(fb *logic.Builder, size isa.WordSize, mem ast.MemRef) logic.Formula {
	bytes := size.Bytes()
	if !validByteWidths[bytes] {
		bytes = 8
	}

	pExpr, p := fb.Var("p")
	sExpr, s := fb.Var("s")

	base, _ := fb.Reg(mem.Reg)
	addr := fb.BinOp(isa.BinAdd, base, fb.Val(mem.Offset))

	isBuf := fb.IsBuffer(p, sExpr)
	lower := fb.Rel(isa.CcLe, pExpr, addr)
	upperBound := fb.BinOp(isa.BinSub, fb.BinOp(isa.BinAdd, pExpr, sExpr), fb.Val(int64(bytes-1)))
	upper := fb.Rel(isa.CcLt, addr, upperBound)

	body := fb.And(isBuf, fb.And(lower, upper))
	return fb.Exists(p, fb.Exists(s, body))
}

// callerSaved are the registers a Call havocs (r0-r5, the eBPF caller-
// saved ABI); r6-r9 survive untouched. This is a reconstruction, since
// call semantics are not specified by any source this was derived from.
var callerSaved = []int{0, 1, 2, 3, 4, 5}

// callHavoc surrounds post with nested universal quantifiers over fresh
// variables for each caller-saved register, conservatively modeling an
// unknown helper call with no summary available.
func callHavoc(fb *logic.Builder, post logic.Formula) logic.Formula {
	for _, n := range callerSaved {
		r, _ := isa.NewReg(n)
		post = havoc(fb, r.Ident(), post)
	}
	return post
}
