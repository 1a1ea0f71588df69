// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ikmak/drivercore/core/session"
)

// CommitError wraps a commitTransaction failure so callers can tell it
// apart from a callback failure. The callback's writes may still have been
// applied server-side; the server owns the final outcome.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "transaction commit failed: " + e.Err.Error() }

func (e *CommitError) Unwrap() error { return e.Err }

// TxnCallback is the user-supplied body of a transaction.
type TxnCallback func(ctx context.Context, sess *session.Client) (interface{}, error)

// WithTransaction runs fn inside a transaction on a freshly acquired
// session: the transaction is started before fn runs, committed when fn
// succeeds, and aborted when it fails, including when it panics. Exactly
// one of commit or abort is executed and the session is always ended, no
// matter the outcome. On success the callback's value is returned; a
// commit failure is returned as a *CommitError.
func WithTransaction(ctx context.Context, topo Topology, cfg *Config, opts *session.TransactionOptions, fn TxnCallback) (interface{}, error) {
	sess, err := StartSession(ctx, topo, Write, cfg)
	if err != nil {
		return nil, err
	}

	log := cfg.logger()
	defer func() {
		if endErr := EndSession(topo, sess); endErr != nil {
			log.WithError(endErr).Debug("failed to end transaction session")
		}
	}()

	if err := sess.StartTransaction(opts); err != nil {
		return nil, err
	}

	res, err := runCallback(ctx, cfg, sess, fn)
	if err != nil {
		if abortErr := sess.AbortTransaction(ctx); abortErr != nil {
			log.WithError(abortErr).Debug("failed to abort transaction")
		}
		return nil, err
	}

	if err := sess.CommitTransaction(ctx); err != nil {
		return nil, &CommitError{Err: err}
	}
	return res, nil
}

// runCallback isolates fn: a panic becomes an ordinary error so the
// caller's goroutine survives and the abort path still runs.
func runCallback(ctx context.Context, cfg *Config, sess *session.Client, fn TxnCallback) (res interface{}, err error) {
	if cfg != nil && cfg.CallbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CallbackTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("transaction callback panicked: %v", r)
		}
	}()

	return fn(ctx, sess)
}
