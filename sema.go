// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"time"
)

// sema is a binary semaphore with a latched flag.
// signal() sets the flag and wakes one waiter, a successful wait() clears it.
type sema struct {
	ch chan struct{}
}

func (s *sema) init() {
	s.ch = make(chan struct{}, 1)
}

func (s *sema) signal() {
	select {
	case s.ch <- struct{}{}:
	default:
		// already signaled
	}
}

// wait blocks until signaled or until ms milliseconds have passed.
// A negative ms blocks until signaled.
// It returns true if signaled and false on timeout.
func (s *sema) wait(ms int) bool {
	if ms < 0 {
		<-s.ch
		return true
	}
	select {
	case <-s.ch:
		return true
	default:
	}
	if ms == 0 {
		return false
	}
	t := time.NewTimer(tickDuration(ms))
	defer t.Stop()
	select {
	case <-s.ch:
		return true
	case <-t.C:
		return false
	}
}
