// Package vc walks a built CFG backward from its exits, using a
// Pending/Cyclic/PreCond status table and an explicit work stack (never
// recursion, since the label-keyed continuation graph may be cyclic) to
// collect the module's proof obligations.
package vc

import (
	"fmt"

	"github.com/ebpf-vc/ebpfvc/internal/cfg"
	"github.com/ebpf-vc/ebpfvc/internal/isa"
	"github.com/ebpf-vc/ebpfvc/internal/logic"
	"github.com/ebpf-vc/ebpfvc/internal/wp"
)

// statusKind distinguishes why a block's precondition is, or is not yet,
// known.
type statusKind int

const (
	absent statusKind = iota
	pending
	cyclic
	preCond
)

type status struct {
	kind statusKind
	phi  logic.Formula // meaningful only when kind == preCond
}

// Obligation is one emitted proof obligation, tagged with the block it
// was emitted for (empty for the final entry obligation).
type Obligation struct {
	Block   isa.Label
	Formula logic.Formula
}

// Collect produces the module's full obligation list: zero or more
// per-cut-point obligations in reverse-BFS discovery order, followed
// always by the final entry obligation `requires => precond(start)`.
func Collect(fb *logic.Builder, m *cfg.Module) []Obligation {
	c := &collector{
		fb:      fb,
		module:  m,
		status:  make(map[isa.Label]*status),
		stack:   []isa.Label{m.Start},
	}
	c.run()

	entry := fb.Implies(m.Requires, c.precondOf(m.Start))
	c.obligations = append(c.obligations, Obligation{Formula: entry})
	return c.obligations
}

type collector struct {
	fb          *logic.Builder
	module      *cfg.Module
	status      map[isa.Label]*status
	stack       []isa.Label
	obligations []Obligation
}

func (c *collector) get(l isa.Label) *status {
	s, ok := c.status[l]
	if !ok {
		s = &status{kind: absent}
		c.status[l] = s
	}
	return s
}

func (c *collector) run() {
	for len(c.stack) > 0 {
		n := len(c.stack) - 1
		l := c.stack[n]
		c.stack = c.stack[:n]

		s := c.get(l)
		if s.kind == preCond {
			continue
		}
		s.kind = pending

		block, ok := c.module.Blocks[l]
		if !ok {
			panic(fmt.Sprintf("vc: internal error: block %q never resolved", l))
		}

		post, deferred := c.postOf(block)
		if deferred {
			continue
		}

		result := wp.Compute(c.fb, block.Body, post)

		switch {
		case block.Invariant != nil:
			obligation := c.fb.Implies(block.Invariant, result)
			c.obligations = append(c.obligations, Obligation{Block: l, Formula: obligation})
			c.get(l).kind = preCond
			c.get(l).phi = block.Invariant
		case c.get(l).kind == cyclic:
			c.obligations = append(c.obligations, Obligation{Block: l, Formula: result})
			c.get(l).kind = preCond
			c.get(l).phi = c.fb.Top()
		default:
			c.get(l).kind = preCond
			c.get(l).phi = result
		}
	}
}

// postOf computes the postcondition for a block's continuation. When a
// successor's status is still absent, the whole block is deferred: both
// the block and the unresolved successor are pushed back so the
// successor is processed first on a later pop.
func (c *collector) postOf(block *cfg.Block) (post logic.Formula, deferred bool) {
	switch cont := block.Cont.(type) {
	case cfg.ExitCont:
		return c.module.Ensures, false

	case cfg.JmpCont:
		if c.defer1(block.Label, cont.Target) {
			return nil, true
		}
		return c.precondOf(cont.Target), false

	case cfg.JccCont:
		if c.defer1(block.Label, cont.TTrue) || c.defer1(block.Label, cont.TFalse) {
			return nil, true
		}
		a, _ := c.fb.Reg(cont.A)
		b := cont.B.Expr(c.fb)
		trueCond := c.fb.Rel(cont.Cc, a, b)
		falseCond := c.fb.Not(trueCond)

		trueBranch := c.fb.AsymAnd(trueCond, c.precondOf(cont.TTrue))
		falseBranch := c.fb.AsymAnd(falseCond, c.precondOf(cont.TFalse))
		return c.fb.Or(trueBranch, falseBranch), false

	default:
		panic(fmt.Sprintf("vc: unhandled continuation %T", block.Cont))
	}
}

// defer1 reports whether target's status is still absent, and if so
// arranges for self and target to be revisited (target first, since the
// stack is LIFO).
func (c *collector) defer1(self, target isa.Label) bool {
	if c.get(target).kind != absent {
		return false
	}
	c.stack = append(c.stack, self, target)
	return true
}

// precondOf returns the best currently-known precondition for label t:
// the cached formula if resolved, ⊤-or-invariant if a back-edge was
// detected (marking the target Cyclic along the way), or panics if asked
// for a target that was never reached at all (an internal invariant
// violation, since postOf always defers until successors are at least
// Pending).
func (c *collector) precondOf(t isa.Label) logic.Formula {
	s := c.get(t)
	switch s.kind {
	case preCond:
		return s.phi
	case pending, cyclic:
		s.kind = cyclic
		if block, ok := c.module.Blocks[t]; ok && block.Invariant != nil {
			return block.Invariant
		}
		return c.fb.Top()
	default:
		panic(fmt.Sprintf("vc: internal error: precondOf(%q) called before %q was reached", t, t))
	}
}
