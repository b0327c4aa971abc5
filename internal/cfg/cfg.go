// Package cfg folds the linear annotated instruction stream produced by
// the parser into a control-flow graph: a map of labeled basic blocks,
// each ending in an explicit continuation.
package cfg

import (
	"fmt"

	"github.com/ebpf-vc/ebpfvc/internal/ast"
	"github.com/ebpf-vc/ebpfvc/internal/errors"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
)

// Continuation is how a block hands off control: Exit, an unconditional
// jump, or a conditional jump with both branch targets resolved.
type Continuation interface {
	isCont()
	String() string
}

type ExitCont struct{}

type JmpCont struct {
	Target isa.Label
}

type JccCont struct {
	Cc     isa.Cc
	A      isa.Reg
	B      ast.RegImm
	TTrue  isa.Label
	TFalse isa.Label
}

func (ExitCont) isCont() {}
func (JmpCont) isCont()  {}
func (JccCont) isCont()  {}

func (ExitCont) String() string  { return "exit" }
func (c JmpCont) String() string { return "ja " + c.Target }
func (c JccCont) String() string {
	return fmt.Sprintf("j%s %s, %s, %s, %s", c.Cc, c.A, c.B, c.TTrue, c.TFalse)
}

// Block is a label, an optional loop-cut invariant, a straight-line body
// and exactly one continuation.
type Block struct {
	Label     isa.Label
	Invariant logic.Formula // nil if absent
	Body      []ast.Instr
	Cont      Continuation
}

// Module is the CFG builder's output: global pre/postconditions, the
// entry label, and the full block map.
type Module struct {
	Requires logic.Formula
	Ensures  logic.Formula
	Start    isa.Label
	Blocks   map[isa.Label]*Block
}

// labelNames returns the labels of m, for "did you mean" suggestions on an
// undefined-label error.
func labelNames(m map[isa.Label]*Block) []string {
	out := make([]string, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	return out
}

// linePos recovers the source position of a line, for error reporting. The
// Line/Instr interfaces carry no unified accessor, so this is a type switch
// over the concrete variants.
func linePos(line ast.Line) ast.Position {
	switch l := line.(type) {
	case ast.LabelLine:
		return l.Pos
	case ast.RequireLine:
		return l.Pos
	case ast.InstrLine:
		return l.Pos
	default:
		return ast.Position{}
	}
}

// builder is the scratch state for the single streaming pass described
// by the algorithm in the CFG-builder design (an explicit
// current_label/current_invariant/current_body triple, advanced line by
// line, plus an alias map reconciling synthetic and user labels).
type builder struct {
	fb *logic.Builder

	blocks map[isa.Label]*Block
	order  []isa.Label // first-seen order of finished labels; recorded only, nothing reads it

	currentLabel     isa.Label
	currentInvariant logic.Formula
	currentBody      []ast.Instr

	alias map[isa.Label]isa.Label // user-or-synthetic label -> canonical label it was merged into

	synthCounter int
	lineIndex    int
	numLines     int
	lineLabel    []isa.Label // lineLabel[i] = label of the block line i belongs to
	lastPos      ast.Position
}

// Build converts a parsed Module into a CFG Module.
func Build(mod ast.Module, fb *logic.Builder) (*Module, error) {
	b := &builder{
		fb:           fb,
		blocks:       make(map[isa.Label]*Block),
		alias:        make(map[isa.Label]isa.Label),
		currentLabel: "@0",
		numLines:     len(mod.Lines),
		lineLabel:    make([]isa.Label, len(mod.Lines)),
	}

	for i, line := range mod.Lines {
		b.lineIndex = i
		b.lineLabel[i] = b.currentLabel
		b.lastPos = linePos(line)
		if err := b.step(line); err != nil {
			return nil, err
		}
	}

	if len(b.currentBody) != 0 || !b.lastWasExit(mod.Lines) {
		return nil, errors.NoExit(b.lastPos)
	}

	canon, err := b.resolveAliases()
	if err != nil {
		return nil, err
	}
	start := canon("@0")
	if _, ok := b.blocks[start]; !ok {
		return nil, errors.NoLabel(start, ast.Position{}, labelNames(b.blocks))
	}

	requires := conjoinAsym(fb, mod.Requires)
	ensures := conjoinAsym(fb, mod.Ensures)

	return &Module{
		Requires: requires,
		Ensures:  ensures,
		Start:    start,
		Blocks:   b.blocks,
	}, nil
}

func (b *builder) lastWasExit(lines []ast.Line) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		if il, ok := lines[i].(ast.InstrLine); ok {
			_, isExit := il.Instr.(ast.ExitInstr)
			return isExit
		}
	}
	return false
}

func (b *builder) step(line ast.Line) error {
	switch l := line.(type) {
	case ast.LabelLine:
		return b.onLabel(l.Name, l.Pos)
	case ast.RequireLine:
		return b.onRequire(l)
	case ast.InstrLine:
		return b.onInstr(l)
	default:
		return fmt.Errorf("cfg: unhandled line type %T", line)
	}
}

func (b *builder) onLabel(name isa.Label, pos ast.Position) error {
	if len(b.currentBody) != 0 {
		// The in-progress block has real content: close it with an
		// explicit fall-through jump to the new label. This is a graph
		// edge, not a name alias, so current_label is left unaliased.
		if err := b.finish(JmpCont{Target: name}, pos); err != nil {
			return err
		}
		b.currentLabel = name
		return nil
	}
	// No instructions were emitted under current_label yet (it may be a
	// synthetic fall-through region, or a user label immediately
	// followed by another): the two names denote the same block.
	b.alias[b.currentLabel] = name
	b.currentLabel = name
	return nil
}

func (b *builder) onRequire(l ast.RequireLine) error {
	if len(b.currentBody) != 0 {
		return errors.MisplacedRequire(l.Pos)
	}
	if b.currentInvariant == nil {
		b.currentInvariant = l.Formula
	} else {
		b.currentInvariant = b.fb.AsymAnd(b.currentInvariant, l.Formula)
	}
	return nil
}

func (b *builder) onInstr(l ast.InstrLine) error {
	switch instr := l.Instr.(type) {
	case ast.JmpInstr:
		target, err := b.resolveTarget(instr.Target, l.Pos)
		if err != nil {
			return err
		}
		return b.finishAndOpenNext(JmpCont{Target: target}, l.Pos)
	case ast.JccInstr:
		target, err := b.resolveTarget(instr.Target, l.Pos)
		if err != nil {
			return err
		}
		next := b.mintSynthetic()
		cont := JccCont{Cc: instr.Cc, A: instr.A, B: instr.B, TTrue: target, TFalse: next}
		if err := b.finish(cont, l.Pos); err != nil {
			return err
		}
		b.currentLabel = next
		return nil
	case ast.ExitInstr:
		if err := b.finish(ExitCont{}, l.Pos); err != nil {
			return err
		}
		b.currentLabel = b.mintSynthetic()
		return nil
	case ast.UnaryInstr:
		if instr.Size != isa.B64 {
			return errors.Unsupported(instr.String(), l.Pos)
		}
		b.currentBody = append(b.currentBody, l.Instr)
		return nil
	case ast.BinaryInstr:
		if instr.Size != isa.B64 {
			return errors.Unsupported(instr.String(), l.Pos)
		}
		b.currentBody = append(b.currentBody, l.Instr)
		return nil
	default:
		b.currentBody = append(b.currentBody, l.Instr)
		return nil
	}
}

// resolveTarget resolves a jump target in its line-local form. Label-form
// targets are deferred to the post-pass alias resolution (they name
// whatever user or synthetic label they point to, textually); offset-form
// targets are resolved here against the total line count, since offsets
// are positional and have no alias ambiguity.
func (b *builder) resolveTarget(t ast.JumpTarget, pos ast.Position) (isa.Label, error) {
	if t.IsLabel {
		return t.Label, nil
	}
	target := b.lineIndex + int(t.Offset)
	if target < 0 || target >= b.numLines {
		return "", errors.JumpBounds(target, b.numLines, pos)
	}
	return b.lineLabel[target], nil
}

// finish closes the current block with the given continuation, without
// opening a new current label (the caller is responsible for that, since
// Label/Jmp/Jcc/Exit each pick the next label differently).
func (b *builder) finish(cont Continuation, pos ast.Position) error {
	label := b.currentLabel
	if _, exists := b.blocks[label]; exists {
		return errors.DuplicateLabel(label, pos)
	}
	b.blocks[label] = &Block{
		Label:     label,
		Invariant: b.currentInvariant,
		Body:      b.currentBody,
		Cont:      cont,
	}
	b.order = append(b.order, label)
	b.currentBody = nil
	b.currentInvariant = nil
	return nil
}

// finishAndOpenNext finishes the current block and opens a fresh
// synthetic label for the fall-through region after an unconditional
// jump (spec: "open a fresh synthetic label @k++").
func (b *builder) finishAndOpenNext(cont Continuation, pos ast.Position) error {
	if err := b.finish(cont, pos); err != nil {
		return err
	}
	b.currentLabel = b.mintSynthetic()
	return nil
}

func (b *builder) mintSynthetic() isa.Label {
	l := fmt.Sprintf("@%d", b.synthCounter+1)
	b.synthCounter++
	return l
}

// resolveAliases collapses every label recorded as an alias (set when a
// Label line is seen while current_body is still empty, meaning the old
// and new names denote the same not-yet-finished block) into its
// canonical target, transitively. A prior implementation of this system
// walked only a single hop and left a known gap for chains of more than
// one alias; a chain arises in practice whenever two labels are adjacent
// with no instructions between them (`L1: L2: mov ...`), so this
// implementation follows the chain to a fixed point instead, which is
// required to uphold the invariant that the collector never visits an
// unknown label.
func (b *builder) resolveAliases() (func(isa.Label) isa.Label, error) {
	canon := func(l isa.Label) isa.Label {
		seen := make(map[isa.Label]bool)
		for {
			next, ok := b.alias[l]
			if !ok || next == l || seen[l] {
				return l
			}
			seen[l] = true
			l = next
		}
	}

	resolved := make(map[isa.Label]*Block, len(b.blocks))
	aliasOf := make(map[isa.Label]isa.Label, len(b.blocks))
	for l := range b.blocks {
		aliasOf[l] = canon(l)
	}
	for l, blk := range b.blocks {
		target := aliasOf[l]
		if target == l {
			resolved[l] = blk
		}
	}

	fixup := func(l isa.Label) (isa.Label, error) {
		c := canon(l)
		if _, ok := resolved[c]; !ok {
			return "", errors.NoLabel(l, ast.Position{}, labelNames(resolved))
		}
		return c, nil
	}

	for _, blk := range resolved {
		switch c := blk.Cont.(type) {
		case JmpCont:
			t, err := fixup(c.Target)
			if err != nil {
				return nil, err
			}
			blk.Cont = JmpCont{Target: t}
		case JccCont:
			tt, err := fixup(c.TTrue)
			if err != nil {
				return nil, err
			}
			tf, err := fixup(c.TFalse)
			if err != nil {
				return nil, err
			}
			blk.Cont = JccCont{Cc: c.Cc, A: c.A, B: c.B, TTrue: tt, TFalse: tf}
		case ExitCont:
		}
	}

	b.blocks = resolved
	return canon, nil
}

// conjoinAsym folds a list of formulas (e.g. consecutive `;# requires`
// lines) into one, right-associatively, using the staged connective so
// later facts may depend on earlier ones holding.
func conjoinAsym(fb *logic.Builder, fs []logic.Formula) logic.Formula {
	if len(fs) == 0 {
		return fb.Top()
	}
	out := fs[len(fs)-1]
	for i := len(fs) - 2; i >= 0; i-- {
		out = fb.AsymAnd(fs[i], out)
	}
	return out
}
