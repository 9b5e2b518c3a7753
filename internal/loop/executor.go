// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package loop provides the single-threaded executors all engine state is
// confined to. Functions posted to an executor never run concurrently with
// each other.
package loop

import "time"

// Executor runs posted functions one at a time.
type Executor interface {
	// Post schedules fn to run on the executor. Safe to call from any goroutine.
	Post(fn func())
	// AfterFunc schedules fn to run on the executor after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now returns the executor clock.
	Now() time.Time
}

// Timer is a cancellable delayed task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the call
	// stopped the task before it ran.
	Stop() bool
}
