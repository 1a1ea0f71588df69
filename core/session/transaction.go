// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// transactionDatabase is the database commit and abort commands run
// against.
const transactionDatabase = "admin"

func commitTransaction(ctx context.Context, rec *record) error {
	switch rec.state {
	case None:
		return ErrNoTransactStarted
	case Committed:
		return ErrCommitTwice
	case Aborted:
		return ErrCommitAfterAbort
	case Starting:
		// No command was ever bound, so the server never saw the
		// transaction.
		rec.state = Committed
		return nil
	}

	cmd := transactionCommand(rec, "commitTransaction")
	if rec.curMaxCommitTime != nil {
		cmd = append(cmd, bson.E{Key: "maxTimeMS", Value: int64(*rec.curMaxCommitTime / time.Millisecond)})
	}
	if len(rec.recoveryToken) > 0 {
		cmd = append(cmd, bson.E{Key: "recoveryToken", Value: rec.recoveryToken})
	}

	resp, err := rec.transport.ExecCommand(orBackground(ctx), rec.conn, transactionDatabase, dropNullFields(cmd))
	rec.state = Committed
	if err != nil {
		return err
	}

	applyResponse(rec, resp, rec.curWriteConcern)
	return nil
}

func abortTransaction(ctx context.Context, rec *record) error {
	switch rec.state {
	case None:
		return ErrNoTransactStarted
	case Aborted:
		return ErrAbortTwice
	case Committed:
		return ErrAbortAfterCommit
	case Starting:
		rec.state = Aborted
		return nil
	}

	cmd := transactionCommand(rec, "abortTransaction")
	if len(rec.recoveryToken) > 0 {
		cmd = append(cmd, bson.E{Key: "recoveryToken", Value: rec.recoveryToken})
	}

	_, err := rec.transport.ExecCommand(orBackground(ctx), rec.conn, transactionDatabase, dropNullFields(cmd))
	rec.state = Aborted
	return err
}

// transactionCommand builds the shared shell of the commit and abort
// commands.
func transactionCommand(rec *record, name string) bson.D {
	cmd := bson.D{
		{Key: name, Value: int32(1)},
		{Key: "lsid", Value: rec.ident.lsid()},
		{Key: "txnNumber", Value: rec.ident.TxnNumber},
		{Key: "autocommit", Value: false},
	}
	if rec.curWriteConcern != nil {
		cmd = append(cmd, bson.E{Key: "writeConcern", Value: rec.curWriteConcern})
	}
	return cmd
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
