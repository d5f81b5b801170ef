// Package ccas implements conditional single-word CAS: install a value
// into a cell only if an auxiliary predicate holds at the moment the
// operation is resolved, while guaranteeing the cell always ends up in a
// well-defined non-descriptor state with respect to the attempt, even if
// the caller that started it never comes back.
//
// ccas is the helper-CAS step that mcas uses to acquire ownership of each
// cell in a batch; see the mcas package for the multi-word protocol built
// on top of it.
package ccas

import "github.com/ahrav/go-mcas/cell"

// Descriptor is published into a cell to represent an in-flight CCAS. It
// is immutable once constructed; Help resolves it with exactly one CAS.
type Descriptor struct {
	cell *cell.Cell
	old  any
	new  any
	pred func() bool
}

// New constructs a CCAS descriptor without publishing it.
func New(c *cell.Cell, old, new any, pred func() bool) *Descriptor {
	return &Descriptor{cell: c, old: old, new: new, pred: pred}
}

// Try attempts to replace c's contents from old to new, conditional on
// pred() being true at the moment the attempt resolves. It always leaves c
// in a well-defined non-descriptor state for this attempt before
// returning: either installed as new/old by this call, or already resolved
// by a helper.
func Try(c *cell.Cell, old, new any, pred func() bool) {
	d := New(c, old, new, pred)

	for {
		if c.CAS(old, d) {
			Help(d)
			return
		}

		v := c.Load()
		if other, ok := v.(*Descriptor); ok {
			Help(other)
			continue
		}
		// v is a user value != old, or an MCAS descriptor: nothing for
		// this CCAS attempt to do. The caller (typically mcas's acquire
		// loop) re-reads and decides what to do next.
		return
	}
}

// Help resolves d: it evaluates d.pred() and performs the single CAS that
// removes d from its cell, installing new on true and old on false.
// Help is wait-free — it does one predicate evaluation and one CAS, and
// never loops. Calling Help on an already-resolved descriptor is a benign
// no-op: the CAS simply fails because the cell no longer holds d.
func Help(d *Descriptor) {
	v := d.old
	if d.pred() {
		v = d.new
	}
	d.cell.CAS(d, v)
}

// Read returns the logical contents of c, ignoring any transient CCAS
// descriptor: if c currently holds one, Read helps it to completion and
// re-reads. A value that isn't a *Descriptor (a user value, or an MCAS
// descriptor) is returned as-is — interpreting an MCAS descriptor is the
// mcas package's job.
func Read(c *cell.Cell) any {
	for {
		v := c.Load()
		d, ok := v.(*Descriptor)
		if !ok {
			return v
		}
		Help(d)
	}
}
