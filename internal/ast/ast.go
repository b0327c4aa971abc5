// Package ast is the linear, annotated representation produced by parsing
// eBPF assembly: labels, straight-line instructions, and the logical
// annotations (assert/require/requires/ensures) interleaved with them. It
// is consumed exactly once, by the CFG builder (internal/cfg), which folds
// it into a graph of basic blocks.
package ast

import (
	"fmt"

	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

// Position tracks a source location for diagnostics.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// MemRef is a memory operand (reg, offset), e.g. [r1 + 8] or [r2].
type MemRef struct {
	Reg    isa.Reg
	Offset isa.Offset
}

// RegImm is an operand that is either a register or an immediate.
type RegImm struct {
	IsReg bool
	Reg   isa.Reg
	Imm   isa.Imm
}

// RegOperand builds a register operand.
func RegOperand(r isa.Reg) RegImm { return RegImm{IsReg: true, Reg: r} }

// ImmOperand builds an immediate operand.
func ImmOperand(i isa.Imm) RegImm { return RegImm{IsReg: false, Imm: i} }

// Expr builds the formula-algebra expression this operand denotes, using
// the given register/variable for the register case.
func (ri RegImm) Expr(f *logic.Builder) logic.Expr {
	if ri.IsReg {
		e, _ := f.Reg(ri.Reg)
		return e
	}
	return f.Val(ri.Imm)
}

func (ri RegImm) String() string {
	if ri.IsReg {
		return ri.Reg.String()
	}
	return fmt.Sprintf("%d", ri.Imm)
}

// JumpTarget is a jump destination: either a textual label or a relative
// instruction offset (both forms are in the concrete grammar; the CFG
// builder resolves both to block labels).
type JumpTarget struct {
	IsLabel bool
	Label   isa.Label
	Offset  isa.Offset
}

// LabelTarget builds a label-form jump target.
func LabelTarget(l isa.Label) JumpTarget { return JumpTarget{IsLabel: true, Label: l} }

// OffsetTarget builds an offset-form jump target.
func OffsetTarget(o isa.Offset) JumpTarget { return JumpTarget{Offset: o} }

// Instr is one of the core instruction variants (spec data model §3).
type Instr interface {
	isInstr()
	String() string
}

type UnaryInstr struct {
	Pos  Position
	Size isa.WordSize
	Op   isa.UnAlu
	Reg  isa.Reg
}

type BinaryInstr struct {
	Pos  Position
	Size isa.WordSize
	Op   isa.BinAlu
	Dst  isa.Reg
	Src  RegImm
}

type StoreInstr struct {
	Pos  Position
	Size isa.WordSize
	Mem  MemRef
	Src  RegImm
}

type LoadInstr struct {
	Pos  Position
	Size isa.WordSize
	Dst  isa.Reg
	Mem  MemRef
}

type LoadImmInstr struct {
	Pos Position
	Dst isa.Reg
	Imm isa.Imm
}

type LoadMapFdInstr struct {
	Pos Position
	Dst isa.Reg
	Imm isa.Imm
}

type CallInstr struct {
	Pos Position
	Imm isa.Imm
}

type ExitInstr struct {
	Pos Position
}

// JmpInstr is an unconditional jump; it only appears as a straight-line
// Instr before the CFG builder has converted it into a continuation.
type JmpInstr struct {
	Pos    Position
	Target JumpTarget
}

// JccInstr is a conditional jump comparing A against B; the false branch
// is implicit fall-through until the CFG builder splits it out.
type JccInstr struct {
	Pos    Position
	Cc     isa.Cc
	A      isa.Reg
	B      RegImm
	Target JumpTarget
}

// AssertInstr is an in-line assertion, emitted as an obligation at that
// program point by the VC collector.
type AssertInstr struct {
	Pos     Position
	Formula logic.Formula
}

func (UnaryInstr) isInstr()      {}
func (BinaryInstr) isInstr()     {}
func (StoreInstr) isInstr()      {}
func (LoadInstr) isInstr()       {}
func (LoadImmInstr) isInstr()    {}
func (LoadMapFdInstr) isInstr()  {}
func (CallInstr) isInstr()       {}
func (ExitInstr) isInstr()       {}
func (JmpInstr) isInstr()        {}
func (JccInstr) isInstr()        {}
func (AssertInstr) isInstr()     {}

func (i UnaryInstr) String() string {
	return fmt.Sprintf("%s%s %s", i.Op, i.Size, i.Reg)
}
func (i BinaryInstr) String() string {
	return fmt.Sprintf("%s%s %s, %s", i.Op, i.Size, i.Dst, i.Src)
}
func (i StoreInstr) String() string {
	return fmt.Sprintf("st%s [%s+%d], %s", i.Size, i.Mem.Reg, i.Mem.Offset, i.Src)
}
func (i LoadInstr) String() string {
	return fmt.Sprintf("ldx%s %s, [%s+%d]", i.Size, i.Dst, i.Mem.Reg, i.Mem.Offset)
}
func (i LoadImmInstr) String() string { return fmt.Sprintf("lddw %s, %d", i.Dst, i.Imm) }
func (i LoadMapFdInstr) String() string {
	return fmt.Sprintf("lddw %s, map_fd(%d)", i.Dst, i.Imm)
}
func (i CallInstr) String() string { return fmt.Sprintf("call %d", i.Imm) }
func (i ExitInstr) String() string { return "exit" }
func (i JmpInstr) String() string  { return fmt.Sprintf("ja %s", i.Target) }
func (i JccInstr) String() string {
	return fmt.Sprintf("j%s %s, %s, %s", i.Cc, i.A, i.B, i.Target)
}
func (i AssertInstr) String() string { return fmt.Sprintf(";# assert %s", i.Formula) }

func (t JumpTarget) String() string {
	if t.IsLabel {
		return t.Label
	}
	return fmt.Sprintf("%+d", t.Offset)
}

// Line is one line of the annotated source: a label, a straight-line
// instruction (including Jmp/Jcc/Exit, which end a block), or a logical
// annotation. ;# assert is folded into AssertInstr above, so the only
// annotation line kind left at this level is RequireLine (;# req).
type Line interface {
	isLine()
	String() string
}

type LabelLine struct {
	Pos  Position
	Name isa.Label
}

type InstrLine struct {
	Pos   Position
	Instr Instr
}

// RequireLine is a `;# req <formula>` block-invariant annotation. It is
// only legal while the current block's body is still empty.
type RequireLine struct {
	Pos     Position
	Formula logic.Formula
}

func (LabelLine) isLine()   {}
func (InstrLine) isLine()   {}
func (RequireLine) isLine() {}

func (l LabelLine) String() string   { return l.Name + ":" }
func (l InstrLine) String() string   { return l.Instr.String() }
func (l RequireLine) String() string { return fmt.Sprintf(";# req %s", l.Formula) }

// Module is the full parse result: global requires/ensures plus the
// linear line stream.
type Module struct {
	Requires []logic.Formula
	Ensures  []logic.Formula
	Lines    []Line
}
