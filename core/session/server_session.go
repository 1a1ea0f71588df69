// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UUIDSubtype is the BSON binary subtype that a session UUID is encoded as.
const UUIDSubtype byte = 4

// ServerSession is the server-side identity of a session: a 128-bit unique
// identifier plus the transaction counter. The counter is advanced exactly
// once per transaction start; every command bound during that transaction
// carries the value set at the start.
type ServerSession struct {
	SessionID uuid.UUID
	TxnNumber int64
	LastUsed  time.Time
}

// NewServerSession creates an identity with a fresh random session ID.
func NewServerSession() (ServerSession, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return ServerSession{}, err
	}

	return ServerSession{SessionID: id, LastUsed: time.Now()}, nil
}

// NextTxnNumber returns a copy of the identity with the transaction counter
// advanced by one.
func (ss ServerSession) NextTxnNumber() ServerSession {
	ss.TxnNumber++
	return ss
}

// Expired reports whether the identity has gone unused long enough to be
// within one minute of going stale server-side.
func (ss ServerSession) Expired(timeout time.Duration) bool {
	return time.Since(ss.LastUsed) > timeout-time.Minute
}

// lsid builds the wire form of the identifier, {id: <uuid>}.
func (ss ServerSession) lsid() bson.D {
	return bson.D{{Key: "id", Value: primitive.Binary{Subtype: UUIDSubtype, Data: ss.SessionID[:]}}}
}
