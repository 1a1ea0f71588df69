// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import "errors"

var (
	// ErrSessionEnded is returned when a client session is used after it
	// has been ended.
	ErrSessionEnded = errors.New("ended session was used")

	// ErrNoTransactStarted is returned when a transaction operation is
	// invoked with no transaction running.
	ErrNoTransactStarted = errors.New("no transaction started")

	// ErrTransactInProgress is returned when a transaction is started
	// while another transaction is already running on the session.
	ErrTransactInProgress = errors.New("transaction already in progress")

	// ErrCommitTwice is returned when a transaction is committed twice.
	ErrCommitTwice = errors.New("cannot call commitTransaction twice")

	// ErrCommitAfterAbort is returned when an aborted transaction is
	// committed.
	ErrCommitAfterAbort = errors.New("cannot call commitTransaction after calling abortTransaction")

	// ErrAbortTwice is returned when a transaction is aborted twice.
	ErrAbortTwice = errors.New("cannot call abortTransaction twice")

	// ErrAbortAfterCommit is returned when a committed transaction is
	// aborted.
	ErrAbortAfterCommit = errors.New("cannot call abortTransaction after calling commitTransaction")
)
