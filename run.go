// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"sync"
)

// runner is the state of the dispatcher go routine started by Start().
type runner struct {
	mu      sync.Mutex
	running bool
	stop    bool           // Shutdown() in progress
	wg      sync.WaitGroup // wait group for the dispatcher go routine
}

// Start starts a go routine dispatching the queue until Shutdown().
// While started, Dispatch() must not be called by anybody else.
// Calling Start() on an already started queue has no effect.
func (q *EQueue) Start() {
	q.runner.mu.Lock()
	defer q.runner.mu.Unlock()
	if q.runner.running {
		return
	}
	q.runner.running = true
	q.runner.stop = false
	q.runner.wg.Add(1)
	go func() {
		defer q.runner.wg.Done()
		if DBGon() {
			DBG("queue %p: dispatcher started\n", q)
		}
		for !q.stopping() {
			q.Dispatch(Forever)
		}
		if DBGon() {
			DBG("queue %p: dispatcher stopped\n", q)
		}
	}()
}

// stopping returns true if Shutdown() was called.
func (q *EQueue) stopping() bool {
	q.runner.mu.Lock()
	defer q.runner.mu.Unlock()
	return q.runner.stop
}

// Shutdown stops the dispatcher go routine started by Start() and waits
// for it to finish. A Break() issued by somebody else might make the
// dispatcher loop once more, never forever.
func (q *EQueue) Shutdown() {
	q.runner.mu.Lock()
	if !q.runner.running {
		q.runner.mu.Unlock()
		return
	}
	q.runner.stop = true
	q.runner.mu.Unlock()

	q.Break()
	q.runner.wg.Wait()

	q.runner.mu.Lock()
	q.runner.running = false
	q.runner.mu.Unlock()
}
