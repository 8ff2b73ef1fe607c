// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

// The active queue is a singly linked list of "buckets" sorted by target
// tick (linked by next). Events with the same target tick are chained to
// the bucket head using sibling. Each event keeps in ref the address of
// the pointer pointing to it (q.queue, a next or a sibling field), so it
// can be removed without walking the list.
// There's no internal locking: all the functions here must be called
// with the queue lock held, unless noted otherwise.

// insert adds e to the active queue, after all the buckets with a target
// tick before e.target. If a bucket with the same target exists, e becomes
// its new head and the old head its sibling.
func (q *EQueue) insert(e *Event) {
	if e.ref != nil {
		PANIC("insert called on an event still linked: %p slot %d %s"+
			" next %p sibling %p\n", e, e.idx, &e.info, e.next, e.sibling)
	}
	p := &q.queue
	for *p != nil && (*p).target.LT(e.target) {
		p = &(*p).next
	}

	if *p != nil && (*p).target.EQ(e.target) {
		e.next = (*p).next
		if e.next != nil {
			e.next.ref = &e.next
		}
		e.sibling = *p
		e.sibling.ref = &e.sibling
	} else {
		e.next = *p
		if e.next != nil {
			e.next.ref = &e.next
		}
		e.sibling = nil
	}
	*p = e
	e.ref = p
}

// remove unlinks e from the active queue in O(1), using its back reference.
// If e heads a bucket, its first sibling becomes the new bucket head.
func (q *EQueue) remove(e *Event) {
	if e.ref == nil || *e.ref != e {
		PANIC("remove called on an event not in the queue: %p slot %d %s\n",
			e, e.idx, &e.info)
	}
	if e.sibling != nil {
		e.sibling.next = e.next
		if e.sibling.next != nil {
			e.sibling.next.ref = &e.sibling.next
		}
		*e.ref = e.sibling
		e.sibling.ref = e.ref
	} else {
		*e.ref = e.next
		if e.next != nil {
			e.next.ref = e.ref
		}
	}
	e.next = nil
	e.sibling = nil
	e.ref = nil
}

// enqueue adds e to the queue with the given target and returns its
// handle. If e becomes the first event to run and an idle background is
// registered, the background is told about the new deadline.
func (q *EQueue) enqueue(e *Event, target, now Tick) Handle {
	e.target = target
	e.gen = q.generation
	q.insert(e)

	if q.bg.b != nil && q.bg.active && q.queue == e && e.sibling == nil {
		q.bg.b.Update(tickDuration(clampDiff(target, now)))
	}
	return q.codec.pack(e.idx, e.info.id())
}

// lookup returns the slot corresponding to h or nil if h is malformed.
// It can be called without any lock.
func (q *EQueue) lookup(h Handle) *Event {
	if h == InvalidHandle || !q.codec.valid(h) {
		return nil
	}
	idx, _ := q.codec.unpack(h)
	if idx >= len(q.events) {
		return nil
	}
	return &q.events[idx]
}

// pending returns true if h still refers to e and e is in the active
// queue, not already claimed by a dispatch.
// An event with a target before the last dispatched tick, or equal to it
// but enqueued in a previous generation, was already claimed.
func (q *EQueue) pending(e *Event, h Handle) bool {
	_, id := q.codec.unpack(h)
	f, crtID := e.info.getAll()
	if crtID != id || f&fPosted == 0 {
		return false
	}
	diff := e.target.Diff(q.tick)
	if diff < 0 || (diff == 0 && e.gen != q.generation) {
		return false
	}
	return true
}

// unqueue removes the event identified by h from the queue and
// invalidates h. It returns nil if h is stale or if the event was already
// claimed by a dispatch. In the later case the event callback and period
// are still cleared, so that an event not yet started won't run and a
// periodic event won't be re-armed.
// It takes the queue lock.
func (q *EQueue) unqueue(h Handle) *Event {
	e := q.lookup(h)
	if e == nil {
		return nil
	}
	q.lockQueue()
	defer q.unlockQueue()

	_, id := q.codec.unpack(h)
	if f, crtID := e.info.getAll(); crtID != id || f&fPosted == 0 {
		if DBGon() {
			DBG("cancel: stale handle %s (slot %d is %02x:%d)\n",
				h, e.idx, f, crtID)
		}
		return nil
	}
	e.cb = nil
	e.period = -1
	if !q.pending(e, h) {
		if DBGon() {
			DBG("cancel: handle %s already dispatched (target %s tick %s"+
				" gen %d/%d)\n", h, e.target, q.tick, e.gen, q.generation)
		}
		return nil
	}
	q.remove(e)
	e.info.incID(q.codec.idBits)
	e.info.resetFlags(fPosted)
	return e
}

// dequeue claims all the events with a target tick up to target
// (inclusive) and returns them as a list linked by next.
// The buckets order is kept, the order inside a bucket is not guaranteed.
// It takes the queue lock.
func (q *EQueue) dequeue(target Tick) *Event {
	q.lockQueue()

	q.generation++
	if q.tick.LE(target) {
		q.tick = target
	}

	head := q.queue
	p := &head
	for *p != nil && (*p).target.LE(target) {
		p = &(*p).next
	}
	q.queue = *p
	if q.queue != nil {
		q.queue.ref = &q.queue
	}
	*p = nil
	for es := head; es != nil; es = es.next {
		for e := es; e != nil; e = e.sibling {
			e.ref = nil
		}
	}

	q.unlockQueue()

	// flatten: each bucket is reversed and appended, siblings included
	tail := &head
	ess := head
	for ess != nil {
		es := ess
		ess = es.next

		var prev *Event
		for e := es; e != nil; e = e.sibling {
			e.next = prev
			prev = e
		}

		*tail = prev
		tail = &es.next
	}
	return head
}
