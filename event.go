// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"time"
)

// An EventHandlerF is a callback called when a posted event is due.
// The parameters passed are the queue dispatching the event and the event
// itself (use e.Data() to access the payload).
//
// The event belongs to the queue while the callback runs: it must not be
// re-posted or deallocated from the callback. A one shot event is freed
// after the callback returns, a periodic one is re-armed.
type EventHandlerF func(q *EQueue, e *Event)

// A DtorF is called before the memory of an event is freed or re-used.
type DtorF func(e *Event)

// An Event is an event record allocated from an EQueue buffer with Alloc().
// The metadata lives in the queue slot arena, the payload in the queue
// buffer, right after the space reserved for the header.
type Event struct {
	q     *EQueue
	info  eInfo // state flags + instance id (atomic)
	idx   int   // slot index
	off   int   // chunk offset in q.buf
	size  int   // chunk size (header + aligned payload)
	psize int   // requested payload size

	delay  int    // initial delay in ticks (before posting)
	target Tick   // absolute expire tick (while posted)
	period int    // period in ticks, < 0 for one shot events
	gen    uint32 // q.generation at enqueue time

	cb   EventHandlerF // callback function
	dtor DtorF         // destructor
	fn   CallF         // Call*() callback
	arg  interface{}   // Call*() callback parameter

	next    *Event  // next bucket in the queue / next size in the free list
	sibling *Event  // same target tick / same size
	ref     **Event // whatever points to this event (queue only)
}

// Data returns the event payload.
// The returned slice aliases the queue buffer and is valid until the
// event is freed.
func (e *Event) Data() []byte {
	start := e.off + EventHeaderSize
	return e.q.buf[start : start+e.psize : e.off+e.size]
}

// Size returns the requested payload size.
func (e *Event) Size() int {
	return e.psize
}

// ChunkSize returns the total memory used by the event (header included).
func (e *Event) ChunkSize() int {
	return e.size
}

// Queue returns the queue the event was allocated from.
func (e *Event) Queue() *EQueue {
	return e.q
}

// Arg returns the parameter passed to Call(), CallIn() or CallEvery().
func (e *Event) Arg() interface{} {
	return e.arg
}

// SetDelay sets the time after which a posted event is dispatched.
// It must be called before posting the event.
// A negative delay is treated as 0.
func (e *Event) SetDelay(d time.Duration) {
	e.q.lockQueue()
	e.delay = msTicks(d)
	if e.delay < 0 {
		e.delay = 0
	}
	e.q.unlockQueue()
}

// SetPeriod makes the event periodic: after being dispatched it will be
// re-armed to run again after d. Use Forever for a one shot event.
// It can be called from the event callback to stop a periodic event.
func (e *Event) SetPeriod(d time.Duration) {
	e.q.lockQueue()
	e.period = msTicks(d)
	e.q.unlockQueue()
}

// SetDtor sets a destructor, called before the event memory is freed.
func (e *Event) SetDtor(f DtorF) {
	e.q.lockQueue()
	e.dtor = f
	e.q.unlockQueue()
}

// Delay returns the configured delay.
func (e *Event) Delay() time.Duration {
	e.q.lockQueue()
	defer e.q.unlockQueue()
	return tickDuration(e.delay)
}

// Period returns the configured period or Forever for one shot events.
func (e *Event) Period() time.Duration {
	e.q.lockQueue()
	defer e.q.unlockQueue()
	if e.period < 0 {
		return Forever
	}
	return tickDuration(e.period)
}

// Exp returns the absolute expire tick (debugging use, meaningful only for
// posted events).
func (e *Event) Exp() Tick {
	e.q.lockQueue()
	defer e.q.unlockQueue()
	return e.target
}

// reset prepares a chunk for a new owner.
// Must be called with the mem lock held.
func (e *Event) reset(psize int) {
	e.psize = psize
	e.delay = 0
	e.target = 0
	e.period = -1
	e.gen = 0
	e.cb = nil
	e.dtor = nil
	e.fn = nil
	e.arg = nil
	e.next = nil
	e.sibling = nil
	e.ref = nil
	data := e.q.buf[e.off+EventHeaderSize : e.off+e.size]
	for i := range data {
		data[i] = 0
	}
	e.info.chgFlags(fAlloc, fFree|fPosted|fRunning)
}
