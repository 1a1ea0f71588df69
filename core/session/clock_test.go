// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClock(t *testing.T) {
	t.Run("advance is monotonic", func(t *testing.T) {
		var clock Clock
		assert.Nil(t, clock.Now())

		clock.Advance(&primitive.Timestamp{T: 5, I: 5})
		compareOperationTimes(t, &primitive.Timestamp{T: 5, I: 5}, clock.Now())

		clock.Advance(&primitive.Timestamp{T: 5, I: 0})
		clock.Advance(nil)
		compareOperationTimes(t, &primitive.Timestamp{T: 5, I: 5}, clock.Now())

		clock.Advance(&primitive.Timestamp{T: 10, I: 0})
		compareOperationTimes(t, &primitive.Timestamp{T: 10, I: 0}, clock.Now())
	})

	t.Run("sessions feed a shared clock", func(t *testing.T) {
		var clock Clock
		opts := &ClientOptions{Clock: &clock}

		first := newTestSession(t, &fakeTransport{}, Explicit, opts)
		second := newTestSession(t, &fakeTransport{}, Explicit, opts)

		first.AdvanceOperationTime(&primitive.Timestamp{T: 3, I: 0})
		// Force the notification through before reading the clock.
		_, err := first.OperationTime()
		require.NoError(t, err)
		compareOperationTimes(t, &primitive.Timestamp{T: 3, I: 0}, clock.Now())

		second.AdvanceOperationTime(&primitive.Timestamp{T: 4, I: 0})
		_, err = second.OperationTime()
		require.NoError(t, err)
		compareOperationTimes(t, &primitive.Timestamp{T: 4, I: 0}, clock.Now())

		// The clock is shared; per-session operation times are not.
		optime, err := first.OperationTime()
		require.NoError(t, err)
		compareOperationTimes(t, &primitive.Timestamp{T: 3, I: 0}, optime)

		first.EndSession()
		second.EndSession()
	})
}
