// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"fmt"
	"sync/atomic"
)

// eInfo encodes the current state flags of an event slot and its instance
// id. It is accessed atomically.
//
// Internal encoding format:
//   63    56         32          0
//   | flgs | (unused) |    id    |
// where flgs = flags and id = the slot instance id (see Handle).
//
type eInfo struct {
	atomicV uint64
}

const (
	eFlgsMask = 255
	eIDMask   = 1<<32 - 1
	eFlgsBpos = 56
)

// slot state flags
const (
	fAlloc   = 1 // allocated, owned by the caller
	fPosted  = 2 // in the active queue (or claimed by dispatch)
	fRunning = 4 // callback executing
	fFree    = 8 // on the free list

	fStateMask = fAlloc | fPosted | fFree
)

func (i *eInfo) setFlags(mask uint8) {
	f := uint64(mask) << eFlgsBpos
	for {
		crt := atomic.LoadUint64(&i.atomicV)
		if atomic.CompareAndSwapUint64(&i.atomicV, crt, crt|f) {
			break
		}
	}
}

func (i *eInfo) resetFlags(mask uint8) {
	f := uint64(mask) << eFlgsBpos
	for {
		crt := atomic.LoadUint64(&i.atomicV)
		if atomic.CompareAndSwapUint64(&i.atomicV, crt, crt & ^f) {
			break
		}
	}
}

// chgFlags resets the flags in resetMask and sets the bits in setMask
func (i *eInfo) chgFlags(setMask, resetMask uint8) {
	setM := uint64(setMask) << eFlgsBpos
	resetM := uint64(resetMask) << eFlgsBpos
	for {
		crt := atomic.LoadUint64(&i.atomicV)
		if atomic.CompareAndSwapUint64(&i.atomicV, crt, (crt & ^resetM)|setM) {
			break
		}
	}
}

// setID sets the instance id, keeping the flags.
func (i *eInfo) setID(id uint32) {
	for {
		crt := atomic.LoadUint64(&i.atomicV)
		if atomic.CompareAndSwapUint64(&i.atomicV, crt,
			(crt & ^uint64(eIDMask))|uint64(id)) {
			break
		}
	}
}

// incID bumps the instance id. Ids wrap back to 1 once they would not fit
// anymore in idBits (0 is never a valid id).
// Returns the new id.
func (i *eInfo) incID(idBits uint) uint32 {
	for {
		crt := atomic.LoadUint64(&i.atomicV)
		id := (crt & eIDMask) + 1
		if id>>idBits != 0 {
			id = 1
		}
		if atomic.CompareAndSwapUint64(&i.atomicV, crt,
			(crt & ^uint64(eIDMask))|id) {
			return uint32(id)
		}
	}
}

func (i *eInfo) setAll(flgs uint8, id uint32) {
	v := uint64(flgs)<<eFlgsBpos | uint64(id)
	atomic.StoreUint64(&i.atomicV, v)
}

func (i *eInfo) flags() uint8 {
	f, _ := i.getAll()
	return f
}

func (i *eInfo) id() uint32 {
	_, id := i.getAll()
	return id
}

// returns atomically flags and instance id.
func (i *eInfo) getAll() (uint8, uint32) {
	crt := atomic.LoadUint64(&i.atomicV)
	f := (crt >> eFlgsBpos) & eFlgsMask
	id := crt & eIDMask
	return uint8(f), uint32(id)
}

// convert to string, useful for debugging
func (i *eInfo) String() string {
	f, id := i.getAll()
	return fmt.Sprintf("%02x:%d", f, id)
}
