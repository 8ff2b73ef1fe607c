// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//go:build linux

package equeue

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// monoClock reads CLOCK_MONOTONIC directly.
type monoClock struct{}

// NewMonotonicClock returns a Clock backed by the kernel monotonic clock.
// It fails if CLOCK_MONOTONIC is not readable.
func NewMonotonicClock() (Clock, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return nil, errors.Wrap(err, "equeue: clock_gettime(CLOCK_MONOTONIC)")
	}
	return monoClock{}, nil
}

func (monoClock) Tick() Tick {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		PANIC("clock_gettime failed: %s\n", err)
	}
	ms := int64(ts.Sec)*1000 + int64(ts.Nsec)/1000000
	return Tick(uint32(ms))
}
