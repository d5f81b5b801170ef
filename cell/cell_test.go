package cell

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAssignsIncreasingOrderIDs(t *testing.T) {
	a := New(1)
	b := New(2)
	assert.Less(t, a.OrderID(), b.OrderID())
}

func TestLoadReturnsPublishedValue(t *testing.T) {
	c := New("hello")
	assert.Equal(t, "hello", c.Load())
}

func TestCASSucceedsOnMatchingValue(t *testing.T) {
	c := New(1)
	ok := c.CAS(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Load())
}

func TestCASFailsOnMismatchedExpectation(t *testing.T) {
	c := New(1)
	ok := c.CAS(99, 2)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Load())
}

func TestCASIsAtomicAcrossConcurrentWriters(t *testing.T) {
	c := New(0)
	const attempts = 200
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 1; i <= attempts; i++ {
		i := i
		go func() {
			defer wg.Done()
			c.CAS(0, i)
		}()
	}
	wg.Wait()

	final := c.Load()
	assert.NotEqual(t, 0, final, "exactly one writer must have won")
}

func TestOrderIDsUniqueUnderConcurrentNew(t *testing.T) {
	const n = 2000
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(i int) {
			defer wg.Done()
			ids[i] = New(i).OrderID()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "order-id %d reused", id)
		seen[id] = true
	}
}

func TestDescriptorLikePointersComparedByIdentity(t *testing.T) {
	type token struct{ n int }
	a, b := &token{n: 1}, &token{n: 1}

	c := New(a)
	assert.False(t, c.CAS(b, a), "a distinct but value-equal pointer must not satisfy CAS")
	assert.True(t, c.CAS(a, b))
	assert.Same(t, b, c.Load())
}
