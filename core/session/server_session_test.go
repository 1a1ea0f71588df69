// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestServerSession(t *testing.T) {
	t.Run("fresh identities are unique", func(t *testing.T) {
		first, err := NewServerSession()
		require.NoError(t, err)
		second, err := NewServerSession()
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, first.SessionID)
		assert.NotEqual(t, first.SessionID, second.SessionID)
		assert.Equal(t, int64(0), first.TxnNumber)
	})

	t.Run("next txn number leaves the receiver alone", func(t *testing.T) {
		ident, err := NewServerSession()
		require.NoError(t, err)

		next := ident.NextTxnNumber()
		assert.Equal(t, int64(1), next.TxnNumber)
		assert.Equal(t, int64(0), ident.TxnNumber)
		assert.Equal(t, ident.SessionID, next.SessionID)

		assert.Equal(t, int64(2), next.NextTxnNumber().TxnNumber)
	})

	t.Run("lsid carries the UUID as binary subtype 4", func(t *testing.T) {
		ident, err := NewServerSession()
		require.NoError(t, err)

		doc := ident.lsid()
		require.Len(t, doc, 1)
		assert.Equal(t, "id", doc[0].Key)

		bin, ok := doc[0].Value.(primitive.Binary)
		require.True(t, ok)
		assert.Equal(t, UUIDSubtype, bin.Subtype)
		assert.Equal(t, ident.SessionID[:], bin.Data)
	})

	t.Run("expiry", func(t *testing.T) {
		ident, err := NewServerSession()
		require.NoError(t, err)
		assert.False(t, ident.Expired(30*time.Minute))

		ident.LastUsed = time.Now().Add(-31 * time.Minute)
		assert.True(t, ident.Expired(30*time.Minute))
	})
}
