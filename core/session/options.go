// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ClientOptions represents all possible options for creating a client
// session. They are fixed for the lifetime of the session.
type ClientOptions struct {
	CausalConsistency    *bool
	DefaultWriteConcern  *writeconcern.WriteConcern
	DefaultMaxCommitTime *time.Duration
	Clock                *Clock
}

// TransactionOptions represents all possible options for starting a
// transaction in a session. Unset fields fall back to the session
// defaults.
type TransactionOptions struct {
	WriteConcern  *writeconcern.WriteConcern
	MaxCommitTime *time.Duration
}

func mergeClientOptions(opts ...*ClientOptions) *ClientOptions {
	c := &ClientOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.CausalConsistency != nil {
			c.CausalConsistency = opt.CausalConsistency
		}
		if opt.DefaultWriteConcern != nil {
			c.DefaultWriteConcern = opt.DefaultWriteConcern
		}
		if opt.DefaultMaxCommitTime != nil {
			c.DefaultMaxCommitTime = opt.DefaultMaxCommitTime
		}
		if opt.Clock != nil {
			c.Clock = opt.Clock
		}
	}

	return c
}
