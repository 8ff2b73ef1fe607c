// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

const (
	// EventHeaderSize is the buffer space reserved in front of every event
	// payload.
	EventHeaderSize = 64
	// ChunkAlign is the alignment of every chunk carved from the buffer.
	ChunkAlign = 8
)

// ChunkSize returns how much buffer space an event with a payload of
// size bytes uses.
func ChunkSize(size int) int {
	size += EventHeaderSize
	return (size + ChunkAlign - 1) &^ (ChunkAlign - 1)
}

// slab is the unused tail of the buffer.
type slab struct {
	off  int // first unused byte
	size int // remaining bytes
}

func (q *EQueue) lockMem() {
	q.memLock.Lock()
}

func (q *EQueue) unlockMem() {
	q.memLock.Unlock()
}

// memAlloc returns a chunk able to hold at least size bytes of payload.
// It first looks in the free list for the smallest chunk big enough and
// only if none is found carves a new chunk from the buffer tail.
// Returns nil if out of memory.
func (q *EQueue) memAlloc(size int) *Event {
	csize := ChunkSize(size)

	q.lockMem()
	defer q.unlockMem()

	for p := &q.chunks; *p != nil; p = &(*p).next {
		if (*p).size >= csize {
			e := *p
			if e.sibling != nil {
				*p = e.sibling
				(*p).next = e.next
			} else {
				*p = e.next
			}
			q.nfree--
			q.freeBytes -= e.size
			e.next = nil
			e.sibling = nil
			e.reset(size)
			return e
		}
	}

	if q.slab.size >= csize && q.nslots < len(q.events) {
		e := &q.events[q.nslots]
		e.q = q
		e.idx = q.nslots
		e.off = q.slab.off
		e.size = csize
		e.info.setID(1)
		q.nslots++
		q.slab.off += csize
		q.slab.size -= csize
		e.reset(size)
		return e
	}
	return nil
}

// memDealloc puts a chunk back on the free list, sorted by size.
// Chunks with the same size are chained as siblings.
func (q *EQueue) memDealloc(e *Event) {
	q.lockMem()
	defer q.unlockMem()

	p := &q.chunks
	for *p != nil && (*p).size < e.size {
		p = &(*p).next
	}
	if *p != nil && (*p).size == e.size {
		e.sibling = *p
		e.next = (*p).next
	} else {
		e.sibling = nil
		e.next = *p
	}
	*p = e
	e.ref = nil
	e.cb = nil
	e.fn = nil
	e.arg = nil
	e.info.chgFlags(fFree, fAlloc|fPosted|fRunning)
	q.nfree++
	q.freeBytes += e.size
}

// Alloc allocates an event with a payload of size bytes.
// The event is one shot, with no delay and no destructor.
// It returns ErrOutOfMemory if no free chunk is big enough and the buffer
// tail is exhausted. There is no retry.
func (q *EQueue) Alloc(size int) (*Event, error) {
	if size < 0 {
		return nil, ErrInvalidParameters
	}
	if size > len(q.buf)-EventHeaderSize {
		if DBGon() {
			DBG("out of memory: %d bytes exceed the buffer size %d\n",
				size, len(q.buf))
		}
		return nil, ErrOutOfMemory
	}
	e := q.memAlloc(size)
	if e == nil {
		if DBGon() {
			DBG("out of memory for %d bytes (chunk %d, tail %d)\n",
				size, ChunkSize(size), q.tailFree())
		}
		return nil, ErrOutOfMemory
	}
	return e, nil
}

// Dealloc calls the event destructor (if set) and returns the event memory
// to the queue.
// Posted events must be canceled first and an event cannot be freed from
// its own callback.
func (q *EQueue) Dealloc(e *Event) {
	if e == nil {
		return
	}
	f := e.info.flags()
	if f&fRunning != 0 {
		BUG("Dealloc called on running event %p (slot %d, %s)\n",
			e, e.idx, &e.info)
		return
	}
	if f&fFree != 0 {
		BUG("Dealloc called on free event %p (slot %d, %s)\n",
			e, e.idx, &e.info)
		return
	}
	if f&fPosted != 0 {
		BUG("Dealloc called on posted event %p (slot %d, %s)\n",
			e, e.idx, &e.info)
		return
	}
	q.lockQueue()
	dtor := e.dtor
	e.dtor = nil
	q.unlockQueue()
	if dtor != nil {
		dtor(e)
	}
	q.memDealloc(e)
}

// tailFree returns the unused buffer tail size.
func (q *EQueue) tailFree() int {
	q.lockMem()
	defer q.unlockMem()
	return q.slab.size
}
