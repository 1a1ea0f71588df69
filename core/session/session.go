// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the session and transaction core of the
// driver. Each logical session is owned by a single actor goroutine that
// serializes every mutation of the session record; callers interact with
// it through the Client handle, which is safe for concurrent use.
package session

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Type describes the type of the session.
type Type uint8

// These constants are the valid types for a client session.
const (
	Explicit Type = iota
	Implicit
)

// MinWireVersion is the minimum wire version that supports sessions and
// transactions. Older servers have no session concept and commands bound
// to them pass through undecorated.
const MinWireVersion = 6

// Connection is an opaque handle to the server connection a session is
// bound to. The topology owns the connection; the session only references
// it when decorating commands and never closes it.
type Connection interface{}

// Transport executes a literal command against the server on the other end
// of conn and returns the raw response document. Commit and abort commands
// are issued through this interface; transport errors propagate to the
// caller unchanged and are not retried at this layer.
type Transport interface {
	ExecCommand(ctx context.Context, conn Connection, database string, cmd bson.D) (bson.Raw, error)
}
