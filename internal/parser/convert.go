package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ebpf-vc/ebpfvc/grammar"
	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

// converter walks a grammar concrete syntax tree into an ast.Module,
// minting logic-algebra nodes through a shared builder. It stops at the
// first error: later ebpf instructions in a malformed file are not worth
// reporting once one diagnostic already explains the failure.
type converter struct {
	fb       *logic.Builder
	filename string
	err      error
}

func (c *converter) fail(pos ast.Position, format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	c.err = errors.NewSemanticError(errors.ErrParseFailure, fmt.Sprintf(format, args...), pos).Build()
}

func (c *converter) convertModule(cst *grammar.Module) *ast.Module {
	mod := &ast.Module{}
	for _, line := range cst.Lines {
		if c.err != nil {
			return mod
		}
		c.convertLine(mod, line)
	}
	return mod
}

func (c *converter) convertLine(mod *ast.Module, line *grammar.Line) {
	switch {
	case line == nil:
		return
	case line.Preamble != nil:
		p := line.Preamble
		f := c.convertFormula(p.Formula)
		if p.Kind == "requires" {
			mod.Requires = append(mod.Requires, f)
		} else {
			mod.Ensures = append(mod.Ensures, f)
		}
	case line.Require != nil:
		r := line.Require
		mod.Lines = append(mod.Lines, ast.RequireLine{
			Pos:     toPos(c.filename, r.Pos),
			Formula: c.convertFormula(r.Formula),
		})
	case line.Assert != nil:
		a := line.Assert
		mod.Lines = append(mod.Lines, ast.InstrLine{
			Pos: toPos(c.filename, a.Pos),
			Instr: ast.AssertInstr{
				Pos:     toPos(c.filename, a.Pos),
				Formula: c.convertFormula(a.Formula),
			},
		})
	case line.Label != nil:
		l := line.Label
		mod.Lines = append(mod.Lines, ast.LabelLine{Pos: toPos(c.filename, l.Pos), Name: l.Name})
	case line.Instr != nil:
		pos, instr := c.convertInstr(line.Instr)
		if instr != nil {
			mod.Lines = append(mod.Lines, ast.InstrLine{Pos: pos, Instr: instr})
		}
	}
}

func toPos(filename string, p lexer.Position) ast.Position {
	return ast.Position{Filename: filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func (c *converter) convertInstr(in *grammar.Instr) (ast.Position, ast.Instr) {
	switch {
	case in.Unary != nil:
		u := in.Unary
		pos := toPos(c.filename, u.Pos)
		reg, ok := regFromIdent(u.Dst)
		if !ok {
			c.fail(pos, "not a register: %s", u.Dst)
			return pos, nil
		}
		op, size := unAluFromMnemonic(u.Op)
		return pos, ast.UnaryInstr{Pos: pos, Size: size, Op: op, Reg: reg}

	case in.Binary != nil:
		b := in.Binary
		pos := toPos(c.filename, b.Pos)
		dst, ok := regFromIdent(b.Dst)
		if !ok {
			c.fail(pos, "not a register: %s", b.Dst)
			return pos, nil
		}
		op, size := binAluFromMnemonic(b.Op)
		src := c.convertOperand(pos, b.Src)
		return pos, ast.BinaryInstr{Pos: pos, Size: size, Op: op, Dst: dst, Src: src}

	case in.Stx != nil:
		s := in.Stx
		pos := toPos(c.filename, s.Pos)
		mem := c.convertMem(pos, s.Mem)
		src := c.convertOperand(pos, s.Src)
		return pos, ast.StoreInstr{Pos: pos, Size: sizeFromSuffix(s.Op), Mem: mem, Src: src}

	case in.Ldx != nil:
		l := in.Ldx
		pos := toPos(c.filename, l.Pos)
		dst, ok := regFromIdent(l.Dst)
		if !ok {
			c.fail(pos, "not a register: %s", l.Dst)
			return pos, nil
		}
		mem := c.convertMem(pos, l.Mem)
		return pos, ast.LoadInstr{Pos: pos, Size: sizeFromSuffix(l.Op), Dst: dst, Mem: mem}

	case in.Lddw != nil:
		ld := in.Lddw
		pos := toPos(c.filename, ld.Pos)
		dst, ok := regFromIdent(ld.Dst)
		if !ok {
			c.fail(pos, "not a register: %s", ld.Dst)
			return pos, nil
		}
		if ld.MapFd != nil {
			imm := c.convertImm(pos, ld.MapFd)
			return pos, ast.LoadMapFdInstr{Pos: pos, Dst: dst, Imm: imm}
		}
		imm := c.convertImm(pos, ld.Plain)
		return pos, ast.LoadImmInstr{Pos: pos, Dst: dst, Imm: imm}

	case in.Call != nil:
		cl := in.Call
		pos := toPos(c.filename, cl.Pos)
		return pos, ast.CallInstr{Pos: pos, Imm: c.convertImm(pos, cl.Imm)}

	case in.Exit != nil:
		pos := toPos(c.filename, in.Exit.Pos)
		return pos, ast.ExitInstr{Pos: pos}

	case in.Jmp != nil:
		j := in.Jmp
		pos := toPos(c.filename, j.Pos)
		return pos, ast.JmpInstr{Pos: pos, Target: c.convertTarget(pos, j.Target)}

	case in.Jcc != nil:
		j := in.Jcc
		pos := toPos(c.filename, j.Pos)
		a, ok := regFromIdent(j.A)
		if !ok {
			c.fail(pos, "not a register: %s", j.A)
			return pos, nil
		}
		b := c.convertOperand(pos, j.B)
		return pos, ast.JccInstr{Pos: pos, Cc: ccFromMnemonic(j.Cc), A: a, B: b, Target: c.convertTarget(pos, j.Target)}
	}
	return ast.Position{Filename: c.filename}, nil
}

func (c *converter) convertOperand(pos ast.Position, op *grammar.Operand) ast.RegImm {
	if op.Reg != nil {
		reg, ok := regFromIdent(*op.Reg)
		if !ok {
			c.fail(pos, "not a register: %s", *op.Reg)
			return ast.RegImm{}
		}
		return ast.RegOperand(reg)
	}
	return ast.ImmOperand(c.convertImm(pos, op.Imm))
}

func (c *converter) convertTarget(pos ast.Position, t *grammar.Target) ast.JumpTarget {
	if t.Label != nil {
		return ast.LabelTarget(*t.Label)
	}
	return ast.OffsetTarget(c.convertImm(pos, t.Imm))
}

func (c *converter) convertMem(pos ast.Position, m *grammar.Mem) ast.MemRef {
	reg, ok := regFromIdent(m.Reg)
	if !ok {
		c.fail(pos, "not a register: %s", m.Reg)
		return ast.MemRef{}
	}
	var off int64
	if m.Off != nil {
		off = c.convertImm(pos, m.Off)
		if m.Sign != nil && *m.Sign == "-" {
			off = -off
		}
	}
	return ast.MemRef{Reg: reg, Offset: off}
}

func (c *converter) convertImm(pos ast.Position, im *grammar.Imm) int64 {
	text := im.Num
	if im.Sign != nil {
		text = *im.Sign + text
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		c.fail(pos, "malformed integer literal %q: %s", text, err)
		return 0
	}
	return v
}

func (c *converter) convertFormula(f *grammar.Formula) logic.Formula {
	switch {
	case f.True:
		return c.fb.Top()
	case f.False:
		return c.fb.Bot()
	case f.Not != nil:
		return c.fb.Not(c.convertFormula(f.Not))
	case f.And != nil:
		return c.fb.And(c.convertFormula(f.And.X), c.convertFormula(f.And.Y))
	case f.Or != nil:
		return c.fb.Or(c.convertFormula(f.Or.X), c.convertFormula(f.Or.Y))
	case f.Implies != nil:
		return c.fb.Implies(c.convertFormula(f.Implies.X), c.convertFormula(f.Implies.Y))
	case f.Iff != nil:
		return c.fb.Iff(c.convertFormula(f.Iff.X), c.convertFormula(f.Iff.Y))
	case f.AsymAnd != nil:
		return c.fb.AsymAnd(c.convertFormula(f.AsymAnd.X), c.convertFormula(f.AsymAnd.Y))
	case f.Forall != nil:
		return c.fb.Forall(f.Forall.Var, c.convertFormula(f.Forall.Body))
	case f.Exists != nil:
		return c.fb.Exists(f.Exists.Var, c.convertFormula(f.Exists.Body))
	case f.IsBuffer != nil:
		return c.fb.IsBuffer(f.IsBuffer.Ptr, c.convertExpr(f.IsBuffer.Size))
	case f.Rel != nil:
		return c.fb.Rel(ccFromRelOp(f.Rel.Op), c.convertExpr(f.Rel.X), c.convertExpr(f.Rel.Y))
	}
	return c.fb.Top()
}

func (c *converter) convertExpr(e *grammar.Expr) logic.Expr {
	switch {
	case e.Un != nil:
		op, _ := unAluFromMnemonicName(e.Un.Op)
		return c.fb.UnOp(op, c.convertExpr(e.Un.X))
	case e.Bin != nil:
		op, _ := binAluFromMnemonicName(e.Bin.Op)
		return c.fb.BinOp(op, c.convertExpr(e.Bin.X), c.convertExpr(e.Bin.Y))
	case e.Val != nil:
		pos := toPos(c.filename, e.Val.Pos)
		return c.fb.Val(c.convertImm(pos, e.Val))
	case e.Ident != nil:
		if reg, ok := regFromIdent(*e.Ident); ok {
			expr, _ := c.fb.Reg(reg)
			return expr
		}
		return c.fb.VarIdent(*e.Ident)
	case e.Paren != nil:
		return c.convertExpr(e.Paren)
	}
	return c.fb.Val(0)
}

// regFromIdent recognizes exactly r0..r9.
func regFromIdent(s string) (isa.Reg, bool) {
	if len(s) < 2 || s[0] != 'r' {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, false
	}
	return isa.NewReg(n)
}

func sizeFromSuffix(mnemonic string) isa.WordSize {
	switch {
	case strings.HasSuffix(mnemonic, "dw"):
		return isa.B64
	case strings.HasSuffix(mnemonic, "w"):
		return isa.B32
	case strings.HasSuffix(mnemonic, "h"):
		return isa.B16
	case strings.HasSuffix(mnemonic, "b"):
		return isa.B8
	default:
		return isa.B64
	}
}

func unAluFromMnemonic(op string) (isa.UnAlu, isa.WordSize) {
	size := isa.B64
	base := op
	if strings.HasSuffix(op, "32") {
		size = isa.B32
		base = strings.TrimSuffix(op, "32")
	}
	alu, _ := unAluFromMnemonicName(base)
	return alu, size
}

func unAluFromMnemonicName(base string) (isa.UnAlu, bool) {
	switch base {
	case "neg":
		return isa.UnNeg, true
	case "le":
		return isa.UnLe, true
	case "be":
		return isa.UnBe, true
	default:
		return isa.UnNeg, false
	}
}

func binAluFromMnemonic(op string) (isa.BinAlu, isa.WordSize) {
	size := isa.B64
	base := op
	if strings.HasSuffix(op, "32") {
		size = isa.B32
		base = strings.TrimSuffix(op, "32")
	}
	alu, _ := binAluFromMnemonicName(base)
	return alu, size
}

func binAluFromMnemonicName(base string) (isa.BinAlu, bool) {
	switch base {
	case "mov":
		return isa.BinMov, true
	case "add":
		return isa.BinAdd, true
	case "sub":
		return isa.BinSub, true
	case "mul":
		return isa.BinMul, true
	case "div":
		return isa.BinDiv, true
	case "mod":
		return isa.BinMod, true
	case "and":
		return isa.BinAnd, true
	case "or":
		return isa.BinOr, true
	case "xor":
		return isa.BinXor, true
	case "lsh":
		return isa.BinLsh, true
	case "rsh":
		return isa.BinRsh, true
	case "arsh":
		return isa.BinArsh, true
	default:
		return isa.BinMov, false
	}
}

func ccFromMnemonic(cc string) isa.Cc {
	switch cc {
	case "jeq":
		return isa.CcEq
	case "jgt":
		return isa.CcGt
	case "jge":
		return isa.CcGe
	case "jlt":
		return isa.CcLt
	case "jle":
		return isa.CcLe
	case "jset":
		return isa.CcSet
	case "jne":
		return isa.CcNe
	case "jsgt":
		return isa.CcSgt
	case "jsge":
		return isa.CcSge
	case "jslt":
		return isa.CcSlt
	case "jsle":
		return isa.CcSle
	default:
		return isa.CcEq
	}
}

func ccFromRelOp(op string) isa.Cc {
	switch op {
	case "=":
		return isa.CcEq
	case "<>":
		return isa.CcNe
	case "<":
		return isa.CcLt
	case "<=":
		return isa.CcLe
	case ">":
		return isa.CcGt
	case ">=":
		return isa.CcGe
	default:
		return isa.CcEq
	}
}
