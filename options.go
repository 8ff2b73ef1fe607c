// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

// Option configures a queue at construction time.
type Option func(*config)

type config struct {
	clock     Clock
	maxEvents int // 0 => computed from the buffer size
}

func defaultConfig() config {
	return config{}
}

// WithClock sets the tick source. The default is NewClock().
func WithClock(c Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
		if c == nil {
			// remember that a nil clock was explicitly requested
			cfg.clock = nilClock{}
		}
	}
}

// WithMaxEvents limits the number of chunks that can be carved from the
// buffer (and so the size of the slot arena). By default it is the number
// of empty payload events that fit in the buffer.
func WithMaxEvents(n int) Option {
	return func(cfg *config) {
		cfg.maxEvents = n
	}
}

// nilClock marks an invalid WithClock(nil) option.
type nilClock struct{}

func (nilClock) Tick() Tick {
	PANIC("nil clock used\n")
	return 0
}
