// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// NewMapped creates a queue whose buffer is an anonymous memory mapping of
// size bytes, outside the go heap. The mapping is released by Destroy():
// event payloads must not be used afterwards.
func NewMapped(size int, opts ...Option) (*EQueue, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBufferTooSmall, "size %d", size)
	}
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "equeue: mapping %d bytes", size)
	}
	q, err := NewInPlace(m, opts...)
	if err != nil {
		if uerr := m.Unmap(); uerr != nil && ERRon() {
			ERR("unmap failed: %s\n", uerr)
		}
		return nil, err
	}
	q.unmap = m.Unmap
	return q, nil
}
