// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package equeue provides an embeddable event queue working on a
// preallocated memory buffer.
//
// Events are allocated from the queue buffer (Alloc), configured
// (SetDelay, SetPeriod, SetDtor) and posted (Post). Any number of go
// routines can allocate, post and cancel events, while a single dispatcher
// (Dispatch) runs them in time order, sleeping between deadlines.
// A queue can also be driven by another event loop (Background, Chain)
// instead of its own blocking Dispatch.
package equeue

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const NAME = "equeue"

// background hand-off state.
type background struct {
	active bool       // the queue is idle and the background must be updated
	b      Background // nil if no background registered
}

// EQueue is an event queue. It must be created with New(), NewInPlace()
// or NewMapped() and destroyed with Destroy().
type EQueue struct {
	buf    []byte
	unmap  func() error // releases a buffer mapped by NewMapped()
	events []Event      // slot arena, one slot per carved chunk
	codec  handleCodec
	clock  Clock

	// allocator, protected by memLock
	memLock   sync.Mutex
	nslots    int    // slots in use (chunks carved)
	slab      slab   // unused buffer tail
	chunks    *Event // free list, sorted by size
	nfree     int    // free chunks
	freeBytes int    // memory in free chunks

	// schedule, protected by queueLock
	queueLock  sync.Mutex
	queue      *Event // active events, sorted by target tick
	tick       Tick   // last dispatched reference tick
	generation uint32 // incremented for each dispatched batch
	breaks     int    // pending Break() calls
	bg         background
	destroyed  bool

	sema sema // new event or break

	runner runner
}

// New creates a new queue with its own buffer of size bytes.
func New(size int, opts ...Option) (*EQueue, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBufferTooSmall, "size %d", size)
	}
	return NewInPlace(make([]byte, size), opts...)
}

// NewInPlace creates a new queue using buf for all its events.
// The buffer must not be used by the caller while the queue exists.
func NewInPlace(buf []byte, opts ...Option) (*EQueue, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if len(buf) < ChunkSize(0) {
		return nil, errors.Wrapf(ErrBufferTooSmall,
			"%d bytes, need at least %d", len(buf), ChunkSize(0))
	}
	if len(buf) > math.MaxInt32 {
		return nil, errors.Wrapf(ErrBufferTooBig, "%d bytes", len(buf))
	}
	if _, ok := cfg.clock.(nilClock); ok {
		return nil, ErrNilClock
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}
	maxEvents := len(buf) / ChunkSize(0)
	if cfg.maxEvents < 0 {
		return nil, errors.Wrapf(ErrInvalidParameters,
			"max events %d", cfg.maxEvents)
	} else if cfg.maxEvents > 0 && cfg.maxEvents < maxEvents {
		maxEvents = cfg.maxEvents
	}

	q := &EQueue{
		buf:    buf,
		events: make([]Event, maxEvents),
		clock:  cfg.clock,
	}
	q.codec.init(maxEvents)
	q.slab.off = 0
	q.slab.size = len(buf)
	q.tick = q.clock.Tick()
	q.sema.init()
	return q, nil
}

// Destroy calls the destructors of all the pending events, releases the
// background (tearing down a Chain()) and the buffer if owned.
// The queue must not be used afterwards.
func (q *EQueue) Destroy() {
	q.Shutdown()

	q.lockQueue()
	if q.destroyed {
		q.unlockQueue()
		return
	}
	q.destroyed = true
	var pending []*Event
	for es := q.queue; es != nil; es = es.next {
		for e := es; e != nil; e = e.sibling {
			pending = append(pending, e)
		}
	}
	q.queue = nil
	b := q.bg.b
	q.bg.b = nil
	q.bg.active = false
	q.unlockQueue()

	for _, e := range pending {
		e.info.incID(q.codec.idBits)
		e.info.resetFlags(fPosted)
		if e.dtor != nil {
			e.dtor(e)
		}
	}
	if b != nil {
		b.Release()
	}
	if q.unmap != nil {
		if err := q.unmap(); err != nil && ERRon() {
			ERR("failed to release the queue buffer: %s\n", err)
		}
		q.unmap = nil
	}
	if DBGon() {
		DBG("queue %p destroyed (%d pending events)\n", q, len(pending))
	}
}

func (q *EQueue) lockQueue() {
	q.queueLock.Lock()
}

func (q *EQueue) unlockQueue() {
	q.queueLock.Unlock()
}

// Now returns the current queue time in ticks.
func (q *EQueue) Now() Tick {
	return q.clock.Tick()
}

// Post schedules e to run f after the event delay.
// It returns a handle that can be used to cancel the event or
// InvalidHandle if the parameters are invalid (nil f or an event that is
// not allocated or is already posted).
func (q *EQueue) Post(e *Event, f EventHandlerF) Handle {
	if e == nil || f == nil {
		ERR("Post called with nil event or callback\n")
		return InvalidHandle
	}
	if e.q != q {
		BUG("Post called with an event from another queue (%p != %p)\n",
			e.q, q)
		return InvalidHandle
	}
	if fl := e.info.flags(); fl&fStateMask != fAlloc {
		BUG("Post called on event %p slot %d in wrong state %s\n",
			e, e.idx, &e.info)
		return InvalidHandle
	}
	now := q.clock.Tick()
	q.lockQueue()
	e.cb = f
	e.info.setFlags(fPosted)
	h := q.enqueue(e, now.AddUint32(uint32(e.delay)), now)
	q.unlockQueue()

	q.sema.signal()
	return h
}

// Cancel removes a posted event and frees it (calling its destructor).
// It returns true if the event was removed and false if the handle is
// stale or the event was already dispatched or is being dispatched.
// In the last case a periodic event is not re-armed anymore and an event
// not yet started will not run.
func (q *EQueue) Cancel(h Handle) bool {
	e := q.unqueue(h)
	if e == nil {
		return false
	}
	q.Dealloc(e)
	return true
}

// TimeLeft returns the time until the event identified by h is due and
// true, or 0 and false if h does not identify a pending event.
func (q *EQueue) TimeLeft(h Handle) (time.Duration, bool) {
	e := q.lookup(h)
	if e == nil {
		return 0, false
	}
	now := q.clock.Tick()
	q.lockQueue()
	defer q.unlockQueue()
	if !q.pending(e, h) {
		return 0, false
	}
	return tickDuration(clampDiff(e.target, now)), true
}

// Break makes the running Dispatch() (or the next one) return as soon as
// possible. Multiple Break() calls before a Dispatch() wakes up might be
// coalesced.
func (q *EQueue) Break() {
	q.lockQueue()
	q.breaks++
	q.unlockQueue()
	q.sema.signal()
}

// Stats contains the queue memory and schedule counters.
type Stats struct {
	Capacity   int    // buffer size
	TailFree   int    // never used buffer tail
	Chunks     int    // chunks carved from the buffer
	MaxChunks  int    // slot arena size
	FreeChunks int    // chunks in the free list
	FreeBytes  int    // bytes in the free list chunks
	Pending    int    // posted events not yet dispatched
	Generation uint32 // dispatched batches
	Background bool   // a background is registered
}

// Stats returns a snapshot of the queue counters.
func (q *EQueue) Stats() Stats {
	var s Stats
	s.Capacity = len(q.buf)
	s.MaxChunks = len(q.events)
	q.lockMem()
	s.TailFree = q.slab.size
	s.Chunks = q.nslots
	s.FreeChunks = q.nfree
	s.FreeBytes = q.freeBytes
	q.unlockMem()

	q.lockQueue()
	for es := q.queue; es != nil; es = es.next {
		for e := es; e != nil; e = e.sibling {
			s.Pending++
		}
	}
	s.Generation = q.generation
	s.Background = q.bg.b != nil
	q.unlockQueue()
	return s
}
