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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

func TestApplyResponse(t *testing.T) {
	token := bson.D{{Key: "shard", Value: "rs0"}}
	resp := rawDocument(t, bson.D{
		{Key: "ok", Value: 1},
		{Key: "operationTime", Value: primitive.Timestamp{T: 5, I: 1}},
		{Key: "recoveryToken", Value: token},
	})

	t.Run("acknowledged write concern forwards operation time", func(t *testing.T) {
		sess := newTestSession(t, &fakeTransport{}, Explicit)
		defer sess.EndSession()

		sess.ApplyResponse(resp, writeconcern.Majority())

		optime, err := sess.OperationTime()
		require.NoError(t, err)
		compareOperationTimes(t, &primitive.Timestamp{T: 5, I: 1}, optime)

		stored, err := sess.RecoveryToken()
		require.NoError(t, err)
		assert.Equal(t, rawDocument(t, token), stored)
	})

	t.Run("nil write concern counts as acknowledged", func(t *testing.T) {
		sess := newTestSession(t, &fakeTransport{}, Explicit)
		defer sess.EndSession()

		sess.ApplyResponse(resp, nil)

		optime, err := sess.OperationTime()
		require.NoError(t, err)
		compareOperationTimes(t, &primitive.Timestamp{T: 5, I: 1}, optime)
	})

	t.Run("unacknowledged write concern drops operation time", func(t *testing.T) {
		sess := newTestSession(t, &fakeTransport{}, Explicit)
		defer sess.EndSession()

		sess.ApplyResponse(resp, writeconcern.Unacknowledged())

		optime, err := sess.OperationTime()
		require.NoError(t, err)
		assert.Nil(t, optime, "unacknowledged writes carry no reliable operation time")

		// The recovery token is forwarded regardless.
		stored, err := sess.RecoveryToken()
		require.NoError(t, err)
		assert.Equal(t, rawDocument(t, token), stored)
	})

	t.Run("absent fields are ignored", func(t *testing.T) {
		sess := newTestSession(t, &fakeTransport{}, Explicit)
		defer sess.EndSession()

		sess.ApplyResponse(rawDocument(t, bson.D{{Key: "ok", Value: 1}}), nil)

		optime, err := sess.OperationTime()
		require.NoError(t, err)
		assert.Nil(t, optime)
		stored, err := sess.RecoveryToken()
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestResponseExtraction(t *testing.T) {
	resp := rawDocument(t, bson.D{
		{Key: "operationTime", Value: primitive.Timestamp{T: 3, I: 7}},
		{Key: "recoveryToken", Value: bson.D{{Key: "shard", Value: "rs0"}}},
	})

	optime := ResponseOperationTime(resp)
	compareOperationTimes(t, &primitive.Timestamp{T: 3, I: 7}, optime)

	token := ResponseRecoveryToken(resp)
	assert.Equal(t, rawDocument(t, bson.D{{Key: "shard", Value: "rs0"}}), token)

	assert.Nil(t, ResponseOperationTime(nil))
	assert.Nil(t, ResponseRecoveryToken(nil))

	// Wrong BSON types are dropped, not coerced.
	wrongTypes := rawDocument(t, bson.D{
		{Key: "operationTime", Value: "not a timestamp"},
		{Key: "recoveryToken", Value: int32(4)},
	})
	assert.Nil(t, ResponseOperationTime(wrongTypes))
	assert.Nil(t, ResponseRecoveryToken(wrongTypes))
}
