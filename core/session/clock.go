// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock is a logical clock shared across sessions for keeping track of the
// highest operation time observed from the cluster. Sessions created with
// ClientOptions.Clock feed every operation time they observe into it.
type Clock struct {
	current *primitive.Timestamp
	lock    sync.Mutex
}

// Now returns the highest operation time observed so far, or nil if none
// has been observed.
func (c *Clock) Now() *primitive.Timestamp {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.current
}

// Advance moves the clock forward to ts if ts is strictly after the
// current value.
func (c *Clock) Advance(ts *primitive.Timestamp) {
	if ts == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.current == nil || timestampAfter(ts, c.current) {
		c.current = ts
	}
}

// timestampAfter reports whether a is strictly after b in the server's
// logical-clock ordering.
func timestampAfter(a, b *primitive.Timestamp) bool {
	return a.T > b.T || (a.T == b.T && a.I > b.I)
}
