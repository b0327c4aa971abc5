package wp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

func reg(n int) isa.Reg {
	r, _ := isa.NewReg(n)
	return r
}

func TestComputeEmptyBodyIsIdentity(t *testing.T) {
	fb := logic.NewBuilder()
	post := fb.Rel(isa.CcGt, fb.VarIdent("r0"), fb.Val(0))
	got := Compute(fb, nil, post)
	assert.Equal(t, post, got)
}

func TestComputeIsSequentiallyComposable(t *testing.T) {
	fb1 := logic.NewBuilder()
	post1 := fb1.Eq(fb1.VarIdent("r0"), fb1.Val(3))
	b1 := []ast.Instr{ast.BinaryInstr{Op: isa.BinMov, Dst: reg(0), Src: ast.ImmOperand(1)}}
	b2 := []ast.Instr{ast.BinaryInstr{Op: isa.BinAdd, Dst: reg(0), Src: ast.ImmOperand(2)}}

	whole := Compute(fb1, append(append([]ast.Instr{}, b1...), b2...), post1)

	fb2 := logic.NewBuilder()
	post2 := fb2.Eq(fb2.VarIdent("r0"), fb2.Val(3))
	composed := Compute(fb2, b1, Compute(fb2, b2, post2))

	assert.Equal(t, whole, composed)
}

func TestComputeDivisorGuardUsesAsymAnd(t *testing.T) {
	fb := logic.NewBuilder()
	post := fb.Top()
	body := []ast.Instr{ast.BinaryInstr{Op: isa.BinDiv, Dst: reg(0), Src: ast.RegOperand(reg(1))}}

	got := Compute(fb, body, post)
	bin, ok := got.(logic.BinFormula)
	if !ok {
		t.Fatalf("expected top-level BinFormula, got %T", got)
	}
	assert.Equal(t, logic.ConnAndAsym, bin.Op)

	rel, ok := bin.X.(logic.RelFormula)
	if !ok {
		t.Fatalf("expected guard to be a relation, got %T", bin.X)
	}
	assert.Equal(t, isa.CcNe, rel.Cc)
}

func TestComputeMovAssignsSourceDirectly(t *testing.T) {
	fb := logic.NewBuilder()
	post := fb.Eq(fb.VarIdent("r0"), fb.Val(7))
	body := []ast.Instr{ast.BinaryInstr{Op: isa.BinMov, Dst: reg(0), Src: ast.ImmOperand(7)}}

	got := Compute(fb, body, post)
	q, ok := got.(logic.QuantFormula)
	if !ok {
		t.Fatalf("expected forall, got %T", got)
	}
	assert.Equal(t, logic.Forall, q.Q)
}

func TestComputeAssertUsesAsymAnd(t *testing.T) {
	fb := logic.NewBuilder()
	post := fb.Top()
	assertion := fb.Rel(isa.CcGt, fb.VarIdent("r0"), fb.Val(0))
	body := []ast.Instr{ast.AssertInstr{Formula: assertion}}

	got := Compute(fb, body, post)
	bin, ok := got.(logic.BinFormula)
	if !ok {
		t.Fatalf("expected BinFormula, got %T", got)
	}
	assert.Equal(t, logic.ConnAndAsym, bin.Op)
	assert.Equal(t, assertion, bin.X)
}

func TestComputeCallHavocsOnlyCallerSaved(t *testing.T) {
	fb := logic.NewBuilder()
	post := fb.Eq(fb.VarIdent("r6"), fb.Val(1))
	body := []ast.Instr{ast.CallInstr{Imm: 1}}

	got := Compute(fb, body, post)
	// r6 is callee-saved, so it must still appear free in the result
	// (the havoc only touches r0-r5).
	q, ok := got.(logic.QuantFormula)
	if !ok {
		t.Fatalf("expected forall chain, got %T", got)
	}
	var innermost logic.Formula = q
	for {
		qf, ok := innermost.(logic.QuantFormula)
		if !ok {
			break
		}
		innermost = qf.Body
	}
	assert.Equal(t, post, innermost)
}
