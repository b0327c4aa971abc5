package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

func code(t *testing.T, err error) string {
	t.Helper()
	ce, ok := err.(errors.CompilerError)
	require.True(t, ok, "expected errors.CompilerError, got %T", err)
	return ce.Code
}

func line(i ast.Instr) ast.Line { return ast.InstrLine{Instr: i} }

func TestBuildSingleExit(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Requires: []logic.Formula{fb.Top()},
		Ensures:  []logic.Formula{fb.Top()},
		Lines:    []ast.Line{line(ast.ExitInstr{})},
	}

	out, err := Build(mod, fb)
	require.NoError(t, err)
	require.Contains(t, out.Blocks, out.Start)
	assert.IsType(t, ExitCont{}, out.Blocks[out.Start].Cont)
	assert.Empty(t, out.Blocks[out.Start].Body)
}

func TestBuildMissingExitFails(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinMov, Dst: 0, Src: ast.ImmOperand(7)}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrNoExit, code(t, err))
}

func TestBuildConditionalSplit(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Ensures: []logic.Formula{fb.Top()},
		Lines: []ast.Line{
			line(ast.JccInstr{Cc: isa.CcEq, A: 0, B: ast.ImmOperand(0), Target: ast.LabelTarget("L")}),
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinMov, Dst: 1, Src: ast.ImmOperand(1)}),
			line(ast.ExitInstr{}),
			ast.LabelLine{Name: "L"},
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinMov, Dst: 1, Src: ast.ImmOperand(2)}),
			line(ast.ExitInstr{}),
		},
	}

	out, err := Build(mod, fb)
	require.NoError(t, err)

	start := out.Blocks[out.Start]
	jcc, ok := start.Cont.(JccCont)
	require.True(t, ok)
	assert.Equal(t, isa.Label("L"), jcc.TTrue)

	falseBlock, ok := out.Blocks[jcc.TFalse]
	require.True(t, ok)
	assert.Len(t, falseBlock.Body, 1)
	assert.IsType(t, ExitCont{}, falseBlock.Cont)

	trueBlock, ok := out.Blocks["L"]
	require.True(t, ok)
	assert.Len(t, trueBlock.Body, 1)
}

func TestBuildDuplicateLabel(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			ast.LabelLine{Name: "L"},
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinMov, Dst: 0, Src: ast.ImmOperand(1)}),
			line(ast.JmpInstr{Target: ast.LabelTarget("L")}),
			ast.LabelLine{Name: "L"},
			line(ast.ExitInstr{}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrDuplicateLabel, code(t, err))
}

func TestBuildUndefinedLabelFails(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			line(ast.JmpInstr{Target: ast.LabelTarget("nope")}),
			line(ast.ExitInstr{}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrNoLabel, code(t, err))
}

func TestBuildMisplacedRequire(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinMov, Dst: 0, Src: ast.ImmOperand(1)}),
			ast.RequireLine{Formula: fb.Top()},
			line(ast.ExitInstr{}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrMisplacedRequire, code(t, err))
}

func TestBuildLoopWithInvariantCarriesThroughAlias(t *testing.T) {
	fb := logic.NewBuilder()
	r0, _ := fb.Reg(regMustNew(0))
	mod := ast.Module{
		Ensures: []logic.Formula{fb.Eq(r0, fb.Val(10))},
		Lines: []ast.Line{
			ast.LabelLine{Name: "L1"},
			ast.RequireLine{Formula: fb.Rel(isa.CcLe, r0, fb.Val(10))},
			line(ast.BinaryInstr{Size: isa.B64, Op: isa.BinAdd, Dst: 0, Src: ast.ImmOperand(1)}),
			line(ast.JccInstr{Cc: isa.CcLt, A: 0, B: ast.ImmOperand(10), Target: ast.LabelTarget("L1")}),
			line(ast.ExitInstr{}),
		},
	}
	out, err := Build(mod, fb)
	require.NoError(t, err)
	l1 := out.Blocks["L1"]
	require.NotNil(t, l1)
	assert.NotNil(t, l1.Invariant)
}

func TestBuildRejectsNonB64BinaryALU(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			line(ast.BinaryInstr{Size: isa.B32, Op: isa.BinAdd, Dst: 0, Src: ast.ImmOperand(1)}),
			line(ast.ExitInstr{}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrUnsupported, code(t, err))
}

func TestBuildRejectsNonB64UnaryALU(t *testing.T) {
	fb := logic.NewBuilder()
	mod := ast.Module{
		Lines: []ast.Line{
			line(ast.UnaryInstr{Size: isa.B32, Op: isa.UnNeg, Reg: 0}),
			line(ast.ExitInstr{}),
		},
	}
	_, err := Build(mod, fb)
	assert.Equal(t, errors.ErrUnsupported, code(t, err))
}

func regMustNew(n int) isa.Reg {
	r, _ := isa.NewReg(n)
	return r
}
