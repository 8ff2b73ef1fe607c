// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"sync"
	"time"

	"github.com/antlabs/timer"
)

// TimerBackground drives a queue from an antlabs/timer timer: each
// deadline change (re)schedules a timer callback that runs the queue
// without blocking.
// The timer must be running (t.Run()) for the queue events to be
// dispatched.
type TimerBackground struct {
	q *EQueue
	t timer.Timer

	mu       sync.Mutex
	node     timer.TimeNoder
	released bool

	dispatch sync.Mutex // only one Dispatch() at a time
}

// NewTimerBackground returns a background for q using t.
// Register it with q.Background().
func NewTimerBackground(q *EQueue, t timer.Timer) *TimerBackground {
	return &TimerBackground{q: q, t: t}
}

func (tb *TimerBackground) Update(d time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.released {
		return
	}
	if tb.node != nil {
		tb.node.Stop()
	}
	tb.node = tb.t.AfterFunc(d, tb.fire)
}

func (tb *TimerBackground) Release() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.node != nil {
		tb.node.Stop()
		tb.node = nil
	}
	tb.released = true
}

// fire runs on the timer go routine. The queue is dispatched from a new go
// routine: Dispatch() might call Update(), which uses the timer.
func (tb *TimerBackground) fire() {
	go func() {
		tb.dispatch.Lock()
		defer tb.dispatch.Unlock()
		tb.mu.Lock()
		released := tb.released
		tb.mu.Unlock()
		if !released {
			tb.q.Dispatch(0)
		}
	}()
}
