// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"github.com/pkg/errors"
)

var ErrOutOfMemory = errors.New("equeue: out of memory")
var ErrInvalidParameters = errors.New("equeue: invalid parameters")
var ErrBufferTooSmall = errors.New("equeue: buffer too small")
var ErrBufferTooBig = errors.New("equeue: buffer too big")
var ErrNilClock = errors.New("equeue: nil clock")
var ErrSelfChain = errors.New("equeue: queue chained to itself")
