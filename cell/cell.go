// Package cell implements the atomic reference-cell abstraction that the
// ccas and mcas packages build on: a single-word atomic storage location
// with a stable total-order key, plain load, and single-word CAS.
//
// A Cell has no notion of the higher-level descriptors that ccas and mcas
// install into it. It compares and stores whatever value it is given;
// interpreting the contents (user value, CCAS descriptor, MCAS descriptor)
// is entirely the caller's job.
package cell

import "sync/atomic"

// orderCounter assigns strictly increasing order-ids across the process
// lifetime, used to impose a total order on cells when a caller acquires
// more than one at a time.
var orderCounter atomic.Uint64

// box is the actual atomic payload. A Cell never mutates a box in place —
// every store allocates a fresh one — so a box loaded at one instant can
// always be handed back to the underlying pointer-CAS as the "this is what
// I last saw" token, giving Cell.CAS true atomicity despite Go having no
// native word-sized tagged-union primitive to CAS directly.
type box struct {
	payload any
}

// Cell is a single atomic word of shared memory participating in MCAS.
// The zero Cell is not usable; construct one with New.
type Cell struct {
	v     atomic.Pointer[box]
	order uint64
}

// New creates a cell holding initial, with a freshly allocated ascending
// order-id.
func New(initial any) *Cell {
	c := &Cell{order: orderCounter.Add(1)}
	c.v.Store(&box{payload: initial})
	return c
}

// Load returns the value currently held by c.
func (c *Cell) Load() any {
	return c.v.Load().payload
}

// CAS atomically replaces c's contents with new, provided it currently
// holds old, and reports whether the swap happened. Comparison is by the
// ordinary equality rules of the Go any type: pointer identity for
// descriptor references, ordinary value equality for comparable user
// values. CAS does exactly one underlying atomic compare-and-swap; on a
// concurrent write racing between the read and the swap it reports false
// rather than retrying, matching the single-word hardware CAS it models.
func (c *Cell) CAS(old, new any) bool {
	cur := c.v.Load()
	if cur.payload != old {
		return false
	}
	return c.v.CompareAndSwap(cur, &box{payload: new})
}

// OrderID returns c's stable total-order key. Order-ids are unique and
// strictly increasing across the lifetime of the process.
func (c *Cell) OrderID() uint64 {
	return c.order
}
