// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"time"

	"github.com/pkg/errors"
)

// A Background drives a queue from another event loop, instead of a
// blocking Dispatch().
//
// Update is called each time the queue nearest deadline changes while the
// queue is not being dispatched: the background should arrange for
// q.Dispatch(0) to be called after d.
// Release is called when the background is replaced or the queue is
// destroyed. No Update will follow.
//
// Update is called with the queue lock held: it must not call back into
// the same queue (it can use other queues).
type Background interface {
	Update(d time.Duration)
	Release()
}

// Background registers b as the queue background, releasing the previous
// one. If events are pending b is immediately updated with the nearest
// deadline. A nil b only releases the current background.
// b must be comparable (e.g. a pointer).
func (q *EQueue) Background(b Background) {
	now := q.clock.Tick()
	q.lockQueue()
	old := q.bg.b
	q.bg.b = b
	if b != nil && q.queue != nil {
		b.Update(tickDuration(clampDiff(q.queue.target, now)))
	}
	q.bg.active = true
	q.unlockQueue()

	if old != nil && old != b {
		if DBGon() {
			DBG("queue %p: releasing background %T %p\n", q, old, old)
		}
		old.Release()
	}
}

// chainCtxSize is the payload of the chain context event.
const chainCtxSize = 24

// chainBackground runs a queue from the dispatcher of a host queue.
type chainBackground struct {
	q    *EQueue // chained queue
	host *EQueue // queue running q
	ctx  *Event  // chain context, allocated from q
	id   Handle  // pending wake-up in host
}

// chainDispatch is the host side wake-up: it runs the chained queue
// without blocking, which in turn re-arms the wake-up.
func chainDispatch(arg interface{}) {
	arg.(*EQueue).Dispatch(0)
}

func (c *chainBackground) Update(d time.Duration) {
	c.host.Cancel(c.id)
	h, err := c.host.CallIn(d, chainDispatch, c.q)
	if err != nil {
		if ERRon() {
			ERR("chain %p -> %p: failed to schedule wake-up in %s: %s\n",
				c.q, c.host, d, err)
		}
		c.id = InvalidHandle
		return
	}
	c.id = h
}

func (c *chainBackground) Release() {
	c.host.Cancel(c.id)
	c.id = InvalidHandle
	if c.ctx != nil {
		c.q.Dealloc(c.ctx)
		c.ctx = nil
	}
}

// Chain makes the host dispatcher run q: each time q has due events,
// host will call q.Dispatch(0). This avoids a dispatcher go routine per
// queue. The chain context is allocated from q.
// Chain(nil) removes the chain.
func (q *EQueue) Chain(host *EQueue) error {
	if host == nil {
		q.Background(nil)
		return nil
	}
	if host == q {
		return ErrSelfChain
	}
	ctx, err := q.Alloc(chainCtxSize)
	if err != nil {
		return errors.Wrap(err, "equeue: chain context")
	}
	ctx.arg = host
	q.Background(&chainBackground{q: q, host: host, ctx: ctx})
	return nil
}
