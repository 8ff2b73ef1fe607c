// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"time"
)

// Dispatch runs the due events, waiting for new ones for at most timeout.
// A negative timeout (Forever) dispatches until Break() is called.
// A 0 timeout runs the events already due and returns immediately.
//
// Only one Dispatch() can run at a time on a queue.
// Events are never run before their target tick. Events with different
// targets are run in target order, the order of events with the same
// target is unspecified.
func (q *EQueue) Dispatch(timeout time.Duration) {
	ms := msTicks(timeout)
	tick := q.clock.Tick()
	timeoutTick := tick.AddUint32(uint32(ms))

	q.lockQueue()
	q.bg.active = false
	q.unlockQueue()

	for {
		// collect all the available events and run them
		for es := q.dequeue(tick); es != nil; {
			e := es
			es = e.next
			q.run(e)
		}

		deadline := -1
		tick = q.clock.Tick()

		// check if we should stop dispatching soon
		if ms >= 0 {
			deadline = int(timeoutTick.Diff(tick))
			if deadline <= 0 {
				q.lockQueue()
				if q.bg.b != nil && q.queue != nil {
					q.bg.b.Update(
						tickDuration(clampDiff(q.queue.target, tick)))
				}
				q.bg.active = true
				q.unlockQueue()
				return
			}
		}

		// find the closest deadline
		q.lockQueue()
		if q.queue != nil {
			diff := clampDiff(q.queue.target, tick)
			if deadline < 0 || diff < deadline {
				deadline = diff
			}
		}
		q.unlockQueue()

		q.sema.wait(deadline)

		// check if we were notified to break out of dispatch
		if q.consumeBreak() {
			if DBGon() {
				DBG("dispatch: break at tick %s\n", q.clock.Tick())
			}
			return
		}
		tick = q.clock.Tick()
	}
}

// run executes a claimed event and then either re-arms it (periodic) or
// frees it.
func (q *EQueue) run(e *Event) {
	q.lockQueue()
	cb := e.cb
	e.info.setFlags(fRunning)
	q.unlockQueue()

	if cb != nil {
		cb(q, e)
	}

	now := q.clock.Tick()
	q.lockQueue()
	e.info.resetFlags(fRunning)
	if e.period >= 0 && !q.destroyed {
		// keep the period grid, but never re-arm in the past
		target := e.target.AddUint32(uint32(e.period))
		if target.LT(now) {
			target = now
		}
		q.enqueue(e, target, now)
		q.unlockQueue()
		return
	}
	e.info.incID(q.codec.idBits)
	e.info.resetFlags(fPosted)
	q.unlockQueue()
	q.Dealloc(e)
}

// consumeBreak returns true and decrements the break counter if a Break()
// is pending.
func (q *EQueue) consumeBreak() bool {
	q.lockQueue()
	defer q.unlockQueue()
	if q.breaks > 0 {
		q.breaks--
		return true
	}
	return false
}
