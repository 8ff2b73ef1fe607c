// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package equeue

import (
	"fmt"

	"github.com/intuitivelabs/slog"
)

// Log is the package logger. By default only errors and bugs are logged,
// use slog.SetLevel(&Log, slog.LDBG) for debugging.
var Log slog.Log = slog.New(slog.LERR, slog.LbackTraceS|slog.LlocInfoS,
	slog.LStdErr)

// DBGon is a shorthand for checking if debug logging is enabled.
func DBGon() bool {
	return Log.DBGon()
}

// DBG logs a debug message.
func DBG(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, "DBG: equeue: ", f, a...)
}

// WARNon is a shorthand for checking if logging at LWARN level is enabled.
func WARNon() bool {
	return Log.WARNon()
}

// WARN logs a warning message.
func WARN(f string, a ...interface{}) {
	Log.LLog(slog.LWARN, 1, "WARNING: equeue: ", f, a...)
}

// ERRon is a shorthand for checking if logging at LERR level is enabled.
func ERRon() bool {
	return Log.ERRon()
}

// ERR logs an error message.
func ERR(f string, a ...interface{}) {
	Log.LLog(slog.LERR, 1, "ERROR: equeue: ", f, a...)
}

// BUG logs an internal inconsistency. Execution continues.
func BUG(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, "BUG: equeue: ", f, a...)
}

// PANIC logs the message and then panics.
func PANIC(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, "PANIC: equeue: ", f, a...)
	panic(fmt.Sprintf(f, a...))
}
