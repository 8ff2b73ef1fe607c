// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"sync"
	"time"

	"github.com/intuitivelabs/timestamp"
)

// A Clock is the queue tick source.
// Tick must be monotonic, cheap and safe for concurrent use.
type Clock interface {
	Tick() Tick
}

// max number of consecutive "time going backwards" readings before
// re-anchoring the clock reference.
const maxBadTime = 10

// tsClock is the default Clock. It counts milliseconds elapsed since its
// creation using timestamp.Now().
type tsClock struct {
	mu      sync.Mutex
	refTS   timestamp.TS // reference time stamp (for refTick)
	refTick Tick         // reference ticks value at start-up or re-adj.
	last    Tick         // last returned value
	badTime uint32       // count time going backwards
}

// NewClock returns the default tick source.
func NewClock() Clock {
	return &tsClock{refTS: timestamp.Now()}
}

// Tick returns the number of milliseconds elapsed since the clock creation,
// wrapping at TicksBits.
// It never goes backwards, even if the underlying time source does.
func (c *tsClock) Tick() Tick {
	now := timestamp.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := uint64(now.Sub(c.refTS) / TickDuration)
	if now.Before(c.refTS) {
		ms = 0
	}
	t := c.refTick.AddUint32(uint32(ms))
	if t.LT(c.last) {
		// time going backwards!!
		c.badTime++
		if c.badTime > maxBadTime {
			if WARNon() {
				WARN("trying to recover after time going backward %d times"+
					" with %d ms\n", c.badTime, c.last.Sub(t))
			}
			// re-anchor so that ticks continue from the last value
			c.refTS = now
			c.refTick = c.last
			c.badTime = 0
		} else if DBGon() {
			DBG("clock: time going backward with %d ms (%d times)\n",
				c.last.Sub(t), c.badTime)
		}
		return c.last
	}
	c.badTime = 0
	if ms > MaxTicksDiff {
		// keep the distance to the reference small, the absolute value
		// is the only thing that has to wrap
		c.refTS = c.refTS.Add(time.Duration(ms) * TickDuration)
		c.refTick = t
	}
	c.last = t
	return t
}
