// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"fmt"
	"math/bits"
)

// Handle identifies a posted event. It is returned by Post() and the
// Call*() functions and can be used with Cancel() and TimeLeft().
//
// A Handle packs the event slot index (low bits) and the slot instance id
// (high bits). The instance id changes every time the event leaves the
// queue (dispatched or canceled), so an old handle will never match a new
// event re-using the same slot (except after a full wrap of the instance
// id).
// The zero value is never a valid handle.
type Handle uint64

// InvalidHandle is returned on failure.
const InvalidHandle Handle = 0

// maximum number of bits used for the instance id.
const maxIDBits = 32

// handleCodec packs and unpacks handles for one queue.
type handleCodec struct {
	idxBits uint // bits needed for the highest slot index
	idBits  uint // bits available for the instance id
}

// init computes the field widths for a queue with maxSlots slots.
func (c *handleCodec) init(maxSlots int) {
	c.idxBits = uint(bits.Len(uint(maxSlots)))
	c.idBits = 63 - c.idxBits
	if c.idBits > maxIDBits {
		c.idBits = maxIDBits
	}
}

func (c *handleCodec) pack(idx int, id uint32) Handle {
	return Handle(uint64(id)<<c.idxBits | uint64(idx))
}

func (c *handleCodec) unpack(h Handle) (int, uint32) {
	idx := uint64(h) & (1<<c.idxBits - 1)
	id := uint64(h) >> c.idxBits
	return int(idx), uint32(id)
}

// valid checks that h does not use bits outside the index and id fields
// and that the id is not 0.
func (c *handleCodec) valid(h Handle) bool {
	if uint64(h)>>(c.idxBits+c.idBits) != 0 {
		return false
	}
	_, id := c.unpack(h)
	return id != 0
}

// String converts a handle to a string, useful for debugging.
func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}
