// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"strconv"
	"time"
)

const (
	TicksBits    = 32
	MaxTicksDiff = 1 << (TicksBits - 1)
	TicksMask    = (MaxTicksDiff - 1) | MaxTicksDiff

	// TickDuration is the length of one tick.
	TickDuration = time.Millisecond
)

// Forever is used as Dispatch timeout for an unbounded dispatch and as
// SetPeriod value for one shot events.
const Forever time.Duration = -1

// Tick is the queue time unit: milliseconds since an arbitrary point.
// It wraps at TicksBits.
// 2 Tick values can be compared as long as the difference between them is
// strictly less then MaxTicksDiff.
//
// Operations on Tick should be performed only using its methods
// (especially comparisons).
type Tick uint32

// Diff returns t - u as a signed value.
func (t Tick) Diff(u Tick) int32 {
	return int32(t - u)
}

// EQ returns if t == u.
func (t Tick) EQ(u Tick) bool {
	return t == u
}

// NE returns if t != u.
func (t Tick) NE(u Tick) bool {
	return t != u
}

// LT returns if t < u, taking into account wraparound.
func (t Tick) LT(u Tick) bool {
	return (uint32(t)-uint32(u))&MaxTicksDiff != 0
}

// GT returns if t > u.
func (t Tick) GT(u Tick) bool {
	return !t.LT(u) && t.NE(u)
}

// GE returns if t >= u.
func (t Tick) GE(u Tick) bool {
	return (uint32(t)-uint32(u))&MaxTicksDiff == 0
}

// LE returns if t <= u.
func (t Tick) LE(u Tick) bool {
	return t.LT(u) || t.EQ(u)
}

// Add adds another tick value and returns the result.
func (t Tick) Add(u Tick) Tick {
	return t + u
}

// Sub subtracts another tick value and returns the result.
func (t Tick) Sub(u Tick) Tick {
	return t - u
}

// AddUint32 adds an uint32 value and returns the result.
func (t Tick) AddUint32(u uint32) Tick {
	return t + Tick(u)
}

// SubUint32 subtracts an uint32 value and returns the result.
func (t Tick) SubUint32(u uint32) Tick {
	return t - Tick(u)
}

// String converts a tick value to a string.
func (t Tick) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// clampDiff returns a - b or 0 if b is after a.
func clampDiff(a, b Tick) int {
	d := a.Diff(b)
	if d < 0 {
		return 0
	}
	return int(d)
}

// msTicks converts a duration into ticks, rounding up: a positive duration
// shorter then one tick is one tick. Negative durations return -1.
func msTicks(d time.Duration) int {
	if d < 0 {
		return -1
	}
	t := (d + TickDuration - 1) / TickDuration
	if t >= MaxTicksDiff {
		t = MaxTicksDiff - 1
	}
	return int(t)
}

// tickDuration converts a number of ticks back to a time.Duration.
func tickDuration(ms int) time.Duration {
	return time.Duration(ms) * TickDuration
}
