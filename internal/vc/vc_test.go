package vc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/cfg"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

func reg(n int) isa.Reg {
	r, _ := isa.NewReg(n)
	return r
}

// TestCollectSingleExitYieldsOneObligation covers scenario E1: a module
// that is just `exit` emits one obligation equivalent to requires =>
// ensures.
func TestCollectSingleExitYieldsOneObligation(t *testing.T) {
	fb := logic.NewBuilder()
	ensures := fb.Top()
	m := &cfg.Module{
		Requires: fb.Top(),
		Ensures:  ensures,
		Start:    "start",
		Blocks: map[isa.Label]*cfg.Block{
			"start": {Label: "start", Cont: cfg.ExitCont{}},
		},
	}

	obligations := Collect(fb, m)
	require.Len(t, obligations, 1)
	want := fb.Implies(fb.Top(), ensures)
	assert.Equal(t, want, obligations[0].Formula)
}

// TestCollectDivisorGuardPresent covers scenario E3: a block containing
// div emits an obligation whose body contains a non-zero divisor guard.
func TestCollectDivisorGuardPresent(t *testing.T) {
	fb := logic.NewBuilder()
	m := &cfg.Module{
		Requires: fb.Top(),
		Ensures:  fb.Top(),
		Start:    "start",
		Blocks: map[isa.Label]*cfg.Block{
			"start": {
				Label: "start",
				Body: []ast.Instr{
					ast.BinaryInstr{Op: isa.BinDiv, Dst: reg(0), Src: ast.RegOperand(reg(1))},
				},
				Cont: cfg.ExitCont{},
			},
		},
	}

	obligations := Collect(fb, m)
	require.Len(t, obligations, 1)

	outer, ok := obligations[0].Formula.(logic.BinFormula)
	require.True(t, ok)
	require.Equal(t, logic.ConnImplies, outer.Op)

	guarded, ok := outer.Y.(logic.BinFormula)
	require.True(t, ok)
	assert.Equal(t, logic.ConnAndAsym, guarded.Op)

	rel, ok := guarded.X.(logic.RelFormula)
	require.True(t, ok)
	assert.Equal(t, isa.CcNe, rel.Cc)
}

// TestCollectLoopWithInvariantEmitsTwoObligations covers scenario E5: a
// back-edge through a block carrying an invariant yields exactly two
// obligations (the cut point and the final entry obligation), and the
// cut-point obligation has the shape invariant => wp(body, post).
func TestCollectLoopWithInvariantEmitsTwoObligations(t *testing.T) {
	fb := logic.NewBuilder()
	r0, _ := fb.Reg(reg(0))
	invariant := fb.Rel(isa.CcLe, r0, fb.Val(10))
	ensures := fb.Eq(r0, fb.Val(10))

	m := &cfg.Module{
		Requires: fb.Top(),
		Ensures:  ensures,
		Start:    "L1",
		Blocks: map[isa.Label]*cfg.Block{
			"L1": {
				Label:     "L1",
				Invariant: invariant,
				Cont:      cfg.JccCont{Cc: isa.CcLt, A: reg(0), B: ast.ImmOperand(10), TTrue: "L1", TFalse: "done"},
			},
			"done": {
				Label: "done",
				Cont:  cfg.ExitCont{},
			},
		},
	}

	obligations := Collect(fb, m)
	require.Len(t, obligations, 2)

	assert.Equal(t, isa.Label("L1"), obligations[0].Block)
	bin, ok := obligations[0].Formula.(logic.BinFormula)
	require.True(t, ok)
	assert.Equal(t, logic.ConnImplies, bin.Op)
	assert.Equal(t, invariant, bin.X)

	// Final obligation is always requires => precond(start), with no
	// Block tag.
	assert.Equal(t, isa.Label(""), obligations[1].Block)
}

// TestCollectLoopWithoutInvariantCutsByTop covers scenario E6: the same
// shape without an invariant is cut by top, so the cut-point obligation
// reduces to wp(body, post) itself.
func TestCollectLoopWithoutInvariantCutsByTop(t *testing.T) {
	fb := logic.NewBuilder()
	ensures := fb.Top()

	m := &cfg.Module{
		Requires: fb.Top(),
		Ensures:  ensures,
		Start:    "L1",
		Blocks: map[isa.Label]*cfg.Block{
			"L1": {
				Label: "L1",
				Cont:  cfg.JccCont{Cc: isa.CcLt, A: reg(0), B: ast.ImmOperand(10), TTrue: "L1", TFalse: "done"},
			},
			"done": {
				Label: "done",
				Cont:  cfg.ExitCont{},
			},
		},
	}

	obligations := Collect(fb, m)
	require.Len(t, obligations, 2)
	assert.Equal(t, isa.Label("L1"), obligations[0].Block)
}
