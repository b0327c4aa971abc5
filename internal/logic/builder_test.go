package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
)

func TestReplaceHygieneNoDescentUnderBindingQuantifier(t *testing.T) {
	b := NewBuilder()

	inner := b.Eq(b.VarIdent("x"), b.Val(0))
	forall := b.Forall("x", inner)

	// replace(x, y, forall x. inner) must leave the quantifier untouched:
	// x is bound there, so the occurrence inside is not free.
	got := b.Replace("x", "y", forall)
	assert.Equal(t, forall, got, "Replace must not descend into a quantifier binding prev")
}

func TestReplaceRewritesFreeOccurrences(t *testing.T) {
	b := NewBuilder()

	f := b.And(b.Eq(b.VarIdent("x"), b.Val(1)), b.Rel(isa.CcLt, b.VarIdent("x"), b.Val(10)))
	got := b.Replace("x", "y", f)

	want := b.And(b.Eq(b.VarIdent("y"), b.Val(1)), b.Rel(isa.CcLt, b.VarIdent("y"), b.Val(10)))
	assert.Equal(t, want, got)
}

func TestReplaceIsBufferRenamesPointerIdentifier(t *testing.T) {
	b := NewBuilder()
	f := b.IsBuffer("p", b.VarIdent("s"))
	got := b.Replace("p", "q", f)
	assert.Equal(t, IsBufferFormula{Ptr: "q", Size: VarExpr{Name: "s"}}, got)
}

func TestVarMintingIsMonotonicAndNeverRepeats(t *testing.T) {
	b := NewBuilder()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, id := b.Var("v")
		assert.Falsef(t, seen[id], "fresh variable %q minted twice", id)
		seen[id] = true
	}
	// Independent bases keep independent counters.
	_, a0 := b.Var("p")
	_, a1 := b.Var("p")
	assert.Equal(t, "p0", a0)
	assert.Equal(t, "p1", a1)
}

func TestRegIdentMatchesConvention(t *testing.T) {
	b := NewBuilder()
	r3, _ := isa.NewReg(3)
	_, id := b.Reg(r3)
	assert.Equal(t, "r3", id)
}
