package equeue

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// manualClock is a Clock advanced only by the tests.
type manualClock struct {
	v uint32
}

func (c *manualClock) Tick() Tick {
	return Tick(atomic.LoadUint32(&c.v))
}

func (c *manualClock) set(v uint32) {
	atomic.StoreUint32(&c.v, v)
}

func (c *manualClock) advance(ms uint32) {
	atomic.AddUint32(&c.v, ms)
}

// newManualQueue returns a queue of size bytes driven by a manual clock
// starting at start.
func newManualQueue(t *testing.T, size int, start uint32) (*EQueue, *manualClock) {
	t.Helper()
	c := &manualClock{v: start}
	q, err := New(size, WithClock(c))
	require.NoError(t, err)
	t.Cleanup(q.Destroy)
	return q, c
}

// checkLists verifies the active queue and free list invariants.
func checkLists(t *testing.T, q *EQueue) {
	t.Helper()
	q.lockQueue()
	p := &q.queue
	for es := q.queue; es != nil; es = es.next {
		require.True(t, es.ref == p, "bad bucket back reference")
		if es.next != nil {
			require.True(t, es.target.LT(es.next.target),
				"queue not sorted: %s >= %s", es.target, es.next.target)
		}
		sp := &es.sibling
		for e := es.sibling; e != nil; e = e.sibling {
			require.True(t, e.ref == sp, "bad sibling back reference")
			require.Equal(t, es.target, e.target, "sibling target")
			sp = &e.sibling
		}
		p = &es.next
	}
	q.unlockQueue()

	q.lockMem()
	for c := q.chunks; c != nil; c = c.next {
		if c.next != nil {
			require.Less(t, c.size, c.next.size, "free list not sorted")
		}
		for s := c.sibling; s != nil; s = s.sibling {
			require.Equal(t, c.size, s.size, "free sibling size")
		}
	}
	q.unlockMem()
}
