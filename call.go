// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"time"
)

// A CallF is a callback registered with Call(), CallIn() or CallEvery().
type CallF func(arg interface{})

// callRecordSize is the payload reserved for a Call*() record
// (callback + parameter).
const callRecordSize = 16

// callDispatch is the event callback for all the Call*() records.
func callDispatch(q *EQueue, e *Event) {
	e.fn(e.arg)
}

// call allocates a call record and posts it.
func (q *EQueue) call(delay, period time.Duration, f CallF,
	arg interface{}) (Handle, error) {
	if f == nil {
		return InvalidHandle, ErrInvalidParameters
	}
	e, err := q.Alloc(callRecordSize)
	if err != nil {
		return InvalidHandle, err
	}
	e.fn = f
	e.arg = arg
	e.SetDelay(delay)
	e.SetPeriod(period)
	return q.Post(e, callDispatch), nil
}

// Call runs f(arg) as soon as possible from the dispatcher.
// It returns ErrOutOfMemory if the queue buffer is full.
func (q *EQueue) Call(f CallF, arg interface{}) (Handle, error) {
	return q.call(0, Forever, f, arg)
}

// CallIn runs f(arg) once, after d.
func (q *EQueue) CallIn(d time.Duration, f CallF,
	arg interface{}) (Handle, error) {
	return q.call(d, Forever, f, arg)
}

// CallEvery runs f(arg) every d, starting after d, until canceled.
func (q *EQueue) CallEvery(d time.Duration, f CallF,
	arg interface{}) (Handle, error) {
	if d < 0 {
		return InvalidHandle, ErrInvalidParameters
	}
	return q.call(d, d, f, arg)
}
