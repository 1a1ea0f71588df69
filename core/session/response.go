// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ApplyResponse feeds the session-relevant pieces of a command response
// back into the session. The operation time is forwarded only when the
// effective write concern was acknowledged; an unacknowledged write
// carries no reliable operation time. Any recovery token present always
// replaces the stored one.
func (c *Client) ApplyResponse(resp bson.Raw, wc *writeconcern.WriteConcern) {
	if ts := ResponseOperationTime(resp); ts != nil && acknowledged(wc) {
		c.AdvanceOperationTime(ts)
	}
	if token := ResponseRecoveryToken(resp); token != nil {
		c.UpdateRecoveryToken(token)
	}
}

// ResponseOperationTime extracts the operationTime field from a server
// response, or nil if the response does not carry one.
func ResponseOperationTime(resp bson.Raw) *primitive.Timestamp {
	val, err := resp.LookupErr("operationTime")
	if err != nil {
		return nil
	}
	t, i, ok := val.TimestampOK()
	if !ok {
		return nil
	}
	return &primitive.Timestamp{T: t, I: i}
}

// ResponseRecoveryToken extracts the recoveryToken document from a server
// response, or nil if the response does not carry one.
func ResponseRecoveryToken(resp bson.Raw) bson.Raw {
	val, err := resp.LookupErr("recoveryToken")
	if err != nil {
		return nil
	}
	doc, ok := val.DocumentOK()
	if !ok {
		return nil
	}
	return doc
}

// applyResponse is the in-actor variant of ApplyResponse, used for the
// commit response the actor already holds.
func applyResponse(rec *record, resp bson.Raw, wc *writeconcern.WriteConcern) {
	if ts := ResponseOperationTime(resp); ts != nil && acknowledged(wc) {
		advanceOperationTime(rec, ts)
	}
	if token := ResponseRecoveryToken(resp); token != nil {
		rec.recoveryToken = token
	}
}

func acknowledged(wc *writeconcern.WriteConcern) bool {
	return wc == nil || wc.Acknowledged()
}
