// Package mcas implements Fraser's practical-lock-freedom multi-word
// compare-and-swap: a thread can atomically update an arbitrary number of
// independent cells, each conditioned on an expected prior value, with the
// semantics of a single virtual CAS that installs every new value or none.
//
// The protocol coordinates the batch through a shared Descriptor whose
// status word transitions at most once, from Undecided to Succeeded or
// Failed — that transition is the operation's linearization point. Each
// cell in the batch is acquired via the ccas package's helper-CAS so that
// any goroutine that stumbles on an in-flight Descriptor can drive it to
// completion, whether or not the goroutine that started it is still
// running.
//
// All accesses to a cell that may ever participate in an mcas.Run call
// must go through this package's Load/Store/CAS/Run — touching a cell's
// CAS directly bypasses descriptor detection and helping, and is
// undefined for any cell shared with mcas.
package mcas

import (
	"sort"
	"sync/atomic"

	"github.com/ahrav/go-mcas/ccas"
	"github.com/ahrav/go-mcas/cell"
)

// Status is the three-state outcome word carried by a Descriptor.
type Status int32

const (
	// Undecided is the initial state of every Descriptor.
	Undecided Status = iota
	// Succeeded means every triple's new value is (or will shortly be)
	// installed.
	Succeeded
	// Failed means every triple's old value is (or will shortly be)
	// restored; no cell's user-visible value changes.
	Failed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Triple names one conditional update in a batch: install New into Cell,
// provided Cell currently holds Old.
type Triple struct {
	Cell     *cell.Cell
	Old, New any
}

type triple struct {
	c        *cell.Cell
	old, new any
}

// Descriptor coordinates an N-tuple of conditional updates. It is
// immutable except for its status word, which transitions at most once.
// A Descriptor is published into cells during acquisition and becomes
// eligible for garbage collection once no cell refers to it and no
// goroutine is helping it.
type Descriptor struct {
	triples []triple
	status  atomic.Int32
}

// newDescriptor validates and sorts a caller-supplied batch. Triples are
// sorted ascending by cell order-id so every goroutine that acquires the
// same set of cells does so in the same global order; with every
// acquisition ascending, no two operations can end up helping each other
// in a cycle.
func newDescriptor(in []Triple) *Descriptor {
	ts := make([]triple, len(in))
	seen := make(map[*cell.Cell]struct{}, len(in))
	for i, t := range in {
		if t.Cell == nil {
			panic("mcas: nil cell in triple batch")
		}
		if _, dup := seen[t.Cell]; dup {
			panic("mcas: duplicate cell in triple batch")
		}
		seen[t.Cell] = struct{}{}
		ts[i] = triple{c: t.Cell, old: t.Old, new: t.New}
	}
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].c.OrderID() < ts[j].c.OrderID()
	})
	return &Descriptor{triples: ts}
}

// loadStatus returns the descriptor's current status.
func (d *Descriptor) loadStatus() Status {
	return Status(d.status.Load())
}

// decide attempts the single commit-point CAS that moves d from Undecided
// to target, then returns d's final, authoritative status regardless of
// whether this call's CAS is the one that won.
func (d *Descriptor) decide(target Status) Status {
	d.status.CompareAndSwap(int32(Undecided), int32(target))
	return d.loadStatus()
}

// Run performs triples as one atomic step: it returns true iff every
// (Cell, Old, New) reflected Old at the linearization point and every New
// value is now installed; it returns false iff at least one expected value
// mismatched, in which case no cell's user-visible value changes.
//
// triples must not contain the same Cell twice; Run panics if it does.
// Cells need not be pre-sorted — Run sorts them internally.
func Run(triples ...Triple) bool {
	d := newDescriptor(triples)
	return help(d)
}

// help drives d toward resolution: acquire (if still undecided), decide,
// patch. It is safe to call concurrently from any number of goroutines,
// including the descriptor's originator and any number of helpers; they
// all observe the same final status.
func help(d *Descriptor) bool {
	if d.loadStatus() == Undecided {
		target := Failed
		if acquireAll(d) {
			target = Succeeded
		}
		d.decide(target)
	}
	final := d.loadStatus()
	patch(d, final)
	return final == Succeeded
}

// acquireAll attempts to install d into every cell in d.triples, in
// strictly ascending order-id order. It returns false as soon as any cell
// cannot be acquired, leaving later triples untouched — patch only needs
// to undo cells that actually hold d.
func acquireAll(d *Descriptor) bool {
	for _, t := range d.triples {
		if !acquireOne(d, t) {
			return false
		}
	}
	return true
}

// acquireOne drives a single triple's cell toward holding d, retrying
// through the cases that can come up along the way: the cell already
// holds d (done), it holds a different MCAS descriptor or a transient
// CCAS descriptor (help it and retry), it was nudged back to old while
// our status was still undecided (retry), or neither (acquisition is
// genuinely impossible — expected-value mismatch, or a helper already
// decided d itself).
func acquireOne(d *Descriptor, t triple) bool {
	for {
		ccas.Try(t.c, t.old, d, func() bool { return d.loadStatus() == Undecided })

		switch v := t.c.Load().(type) {
		case *Descriptor:
			if v == d {
				return true
			}
			// A different MCAS descriptor holds the cell; help it
			// toward resolution before retrying our own attempt.
			help(v)
		case *ccas.Descriptor:
			// A concurrent, unrelated CCAS attempt is transiently
			// installed; help it toward resolution before retrying.
			ccas.Help(v)
		default:
			if v == t.old && d.loadStatus() == Undecided {
				// A helper nudged the CCAS back to old after our
				// status check passed; the cell is free again.
				continue
			}
			// Expected mismatch, or our status was already decided
			// Failed by a helper: acquisition is impossible.
			return false
		}
	}
}

// patch restores a user-visible value into every cell that still holds d,
// installing New on Succeeded and Old on Failed. Patch CASes are allowed
// to fail — a helper may already have performed them — and are safe to
// repeat: at most one mutates a given cell.
func patch(d *Descriptor, final Status) {
	for _, t := range d.triples {
		if t.c.Load() != d {
			continue
		}
		v := t.new
		if final != Succeeded {
			v = t.old
		}
		t.c.CAS(d, v)
	}
}

// Read returns c's logical contents, helping along any CCAS or MCAS
// descriptor it finds there until a plain user value surfaces. Read never
// returns a descriptor.
func Read(c *cell.Cell) any {
	for {
		v := ccas.Read(c)
		if d, ok := v.(*Descriptor); ok {
			help(d)
			continue
		}
		return v
	}
}

// Load is an alias for Read, the public single-cell read operation.
func Load(c *cell.Cell) any { return Read(c) }

// Store installs v into c unconditionally, retrying Run until the CAS
// against c's most recently observed value succeeds.
func Store(c *cell.Cell, v any) {
	for {
		old := Read(c)
		if Run(Triple{Cell: c, Old: old, New: v}) {
			return
		}
	}
}

// CAS is an alias for Run with a single triple.
func CAS(c *cell.Cell, old, new any) bool {
	return Run(Triple{Cell: c, Old: old, New: new})
}
