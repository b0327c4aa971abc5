package printer

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/vc"
)

func TestWhyMLSingleObligation(t *testing.T) {
	fb := logic.NewBuilder()
	obligations := []vc.Obligation{
		{Formula: fb.Implies(fb.Top(), fb.Eq(fb.VarIdent("r0"), fb.Val(7)))},
	}

	got := WhyML(obligations)

	want := "use mach.int.UInt64\n" +
		"use int.Int\n" +
		"use int.ComputerDivision\n\n" +
		"predicate is_buffer (p s : uint64)\n\n" +
		"goal G1: forall r0 r1 r2 r3 r4 r5 r6 r7 r8 r9 : uint64. (true -> (r0 = 7))\n\n"

	if got != want {
		t.Errorf("WhyML output mismatch:\n%s", diff.LineDiff(want, got))
	}
}

func TestSMTLIBSingleObligation(t *testing.T) {
	fb := logic.NewBuilder()
	obligations := []vc.Obligation{
		{Formula: fb.Implies(fb.Top(), fb.Eq(fb.VarIdent("r0"), fb.Val(7)))},
	}

	got, err := SMTLIB(obligations)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "(set-logic UFBV)\n"))
	assert.Contains(t, got, "vc_0")
	assert.Contains(t, got, "(= r0 #x0000000000000007)")
	assert.True(t, strings.HasSuffix(got, "(check-sat)\n(get-unsat-core)(exit)\n"))
}

func TestSMTLIBRefusesSignedComparison(t *testing.T) {
	fb := logic.NewBuilder()
	obligations := []vc.Obligation{
		{Formula: fb.Rel(isa.CcSgt, fb.VarIdent("r0"), fb.Val(0))},
	}

	_, err := SMTLIB(obligations)
	require.Error(t, err)
	var target UnsupportedCompError
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, isa.CcSgt, target.Cc)
}

func TestSMTLIBAndAsymExpandsToStagedImplication(t *testing.T) {
	fb := logic.NewBuilder()
	guard := fb.Not(fb.Eq(fb.VarIdent("r1"), fb.Val(0)))
	obligations := []vc.Obligation{
		{Formula: fb.AsymAnd(guard, fb.Top())},
	}

	got, err := SMTLIB(obligations)
	require.NoError(t, err)
	assert.Contains(t, got, "(and (not (= r1 #x0000000000000000)) (=> (not (= r1 #x0000000000000000)) true))")
}
