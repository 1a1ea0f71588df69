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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// record is the state exclusively owned by a session actor. It is only
// ever touched from inside the actor's message loop.
type record struct {
	conn          Connection
	transport     Transport
	ident         ServerSession
	consistent    bool
	operationTime *primitive.Timestamp
	recoveryToken bson.Raw
	implicit      bool
	wireVersion   int32
	state         TransactionState
	clock         *Clock

	defaultWriteConcern  *writeconcern.WriteConcern
	defaultMaxCommitTime *time.Duration

	// Effective options for the transaction currently hosted by the
	// session, resolved at StartTransaction.
	curWriteConcern  *writeconcern.WriteConcern
	curMaxCommitTime *time.Duration
}

type opCode uint8

const (
	opStartTransaction opCode = iota
	opBindCommand
	opCommitTransaction
	opAbortTransaction
	opEndSession
	opEndImplicitSession
	opSnapshot
	opAdvanceOperationTime
	opUpdateRecoveryToken
)

// request is one tagged message delivered to the actor. Synchronous calls
// carry a reply channel; notifications leave it nil.
type request struct {
	op      opCode
	ctx     context.Context
	cmd     bson.D
	txnOpts *TransactionOptions
	optime  *primitive.Timestamp
	token   bson.Raw
	reply   chan response
}

type response struct {
	err     error
	conn    Connection
	cmd     bson.D
	ident   ServerSession
	state   TransactionState
	optime  *primitive.Timestamp
	token   bson.Raw
	checkin bool
}

const mailboxSize = 8

// Client is a handle to a session actor. A Client may be shared by any
// number of goroutines; every operation is delivered to the actor's
// mailbox and processed one message at a time, so no two mutations of the
// session record ever interleave. Messages from a single caller are
// processed in the order sent; no ordering is guaranteed across callers.
type Client struct {
	mailbox chan request
	done    chan struct{}
}

// NewClientSession spawns the actor for a session bound to conn. The
// session starts with no transaction running. Sessions are causally
// consistent unless the options say otherwise.
func NewClientSession(conn Connection, transport Transport, ident ServerSession, sessionType Type, wireVersion int32, opts ...*ClientOptions) *Client {
	merged := mergeClientOptions(opts...)

	consistent := true
	if merged.CausalConsistency != nil {
		consistent = *merged.CausalConsistency
	}

	rec := &record{
		conn:                 conn,
		transport:            transport,
		ident:                ident,
		consistent:           consistent,
		implicit:             sessionType == Implicit,
		wireVersion:          wireVersion,
		state:                None,
		clock:                merged.Clock,
		defaultWriteConcern:  merged.DefaultWriteConcern,
		defaultMaxCommitTime: merged.DefaultMaxCommitTime,
	}

	c := &Client{
		mailbox: make(chan request, mailboxSize),
		done:    make(chan struct{}),
	}
	go c.run(rec)

	return c
}

// run is the actor loop. It owns rec outright and exits only when an end
// message is processed, closing done so that late callers are not left
// waiting on a reply that will never come.
func (c *Client) run(rec *record) {
	defer close(c.done)

	for req := range c.mailbox {
		switch req.op {
		case opStartTransaction:
			req.reply <- response{err: startTransaction(rec, req.txnOpts)}
		case opBindCommand:
			cmd := bindCommand(rec, req.cmd)
			req.reply <- response{conn: rec.conn, cmd: cmd}
		case opCommitTransaction:
			req.reply <- response{err: commitTransaction(req.ctx, rec)}
		case opAbortTransaction:
			req.reply <- response{err: abortTransaction(req.ctx, rec)}
		case opSnapshot:
			req.reply <- response{
				conn:   rec.conn,
				ident:  rec.ident,
				state:  rec.state,
				optime: rec.operationTime,
				token:  rec.recoveryToken,
			}
		case opAdvanceOperationTime:
			advanceOperationTime(rec, req.optime)
		case opUpdateRecoveryToken:
			if len(req.token) > 0 {
				rec.recoveryToken = req.token
			}
		case opEndSession:
			req.reply <- response{ident: rec.ident, checkin: true}
			return
		case opEndImplicitSession:
			if !rec.implicit {
				// Explicitly created sessions outlive the single
				// operation; tell the caller to skip the checkin.
				req.reply <- response{}
				continue
			}
			req.reply <- response{ident: rec.ident, checkin: true}
			return
		}
	}
}

// call delivers req to the actor and waits for its reply.
func (c *Client) call(req request) (response, error) {
	req.reply = make(chan response, 1)

	select {
	case c.mailbox <- req:
	case <-c.done:
		return response{}, ErrSessionEnded
	}

	select {
	case resp := <-req.reply:
		return resp, resp.err
	case <-c.done:
		// The actor may have replied in the same instant it terminated.
		select {
		case resp := <-req.reply:
			return resp, resp.err
		default:
			return response{}, ErrSessionEnded
		}
	}
}

// notify delivers req without waiting for a reply. Delivery is never
// dropped on a live session: when the mailbox is full the sender waits
// for the actor to drain a slot, so a burst of updates applies
// back-pressure instead of losing operation times or routing tokens.
// Notifications sent to an ended session are dropped.
func (c *Client) notify(req request) {
	select {
	case c.mailbox <- req:
	case <-c.done:
	}
}

// StartTransaction begins a transaction on this session, advancing the
// transaction number and clearing any routing token left over from a
// previous transaction. It returns ErrTransactInProgress if a transaction
// is already running. opts may be nil.
func (c *Client) StartTransaction(opts *TransactionOptions) error {
	_, err := c.call(request{op: opStartTransaction, txnOpts: opts})
	return err
}

// BindCommand merges the session and transaction fields for the current
// state into cmd and returns the bound connection alongside the decorated
// command. Binding a command while a transaction is starting moves the
// session into the in-progress state.
func (c *Client) BindCommand(cmd bson.D) (Connection, bson.D, error) {
	resp, err := c.call(request{op: opBindCommand, cmd: cmd})
	if err != nil {
		return nil, nil, err
	}
	return resp.conn, resp.cmd, nil
}

// CommitTransaction commits the transaction hosted by this session. A
// transaction that never bound a command is committed locally without a
// server round trip.
func (c *Client) CommitTransaction(ctx context.Context) error {
	_, err := c.call(request{op: opCommitTransaction, ctx: ctx})
	return err
}

// AbortTransaction aborts the transaction hosted by this session. A
// transaction that never bound a command is aborted locally without a
// server round trip.
func (c *Client) AbortTransaction(ctx context.Context) error {
	_, err := c.call(request{op: opAbortTransaction, ctx: ctx})
	return err
}

// EndSession stops the session actor and returns the server session
// identity so the caller can check it back into its pool. Any use of the
// session afterwards returns ErrSessionEnded.
func (c *Client) EndSession() (ServerSession, error) {
	resp, err := c.call(request{op: opEndSession})
	if err != nil {
		return ServerSession{}, err
	}
	return resp.ident, nil
}

// EndImplicitSession stops the actor only if the session was created
// implicitly. The returned bool reports whether the identity needs to be
// checked back in; for explicitly created sessions it is false and the
// session remains usable.
func (c *Client) EndImplicitSession() (ServerSession, bool, error) {
	resp, err := c.call(request{op: opEndImplicitSession})
	if err != nil {
		return ServerSession{}, false, err
	}
	return resp.ident, resp.checkin, nil
}

// Connection returns the connection handle the session is bound to.
func (c *Client) Connection() (Connection, error) {
	resp, err := c.call(request{op: opSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.conn, nil
}

// ServerSession returns the current server session identity.
func (c *Client) ServerSession() (ServerSession, error) {
	resp, err := c.call(request{op: opSnapshot})
	if err != nil {
		return ServerSession{}, err
	}
	return resp.ident, nil
}

// TransactionState returns the state of the transaction hosted by the
// session.
func (c *Client) TransactionState() (TransactionState, error) {
	resp, err := c.call(request{op: opSnapshot})
	if err != nil {
		return None, err
	}
	return resp.state, nil
}

// OperationTime returns the last observed operation time, or nil if none
// has been observed.
func (c *Client) OperationTime() (*primitive.Timestamp, error) {
	resp, err := c.call(request{op: opSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.optime, nil
}

// RecoveryToken returns the routing token of the sharded transaction in
// flight, or nil.
func (c *Client) RecoveryToken() (bson.Raw, error) {
	resp, err := c.call(request{op: opSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.token, nil
}

// AdvanceOperationTime updates the session's operation time if ts is
// strictly after the stored value. The caller receives no reply and
// normally does not wait, but a full mailbox holds the sender until the
// actor catches up so the update is never lost.
func (c *Client) AdvanceOperationTime(ts *primitive.Timestamp) {
	c.notify(request{op: opAdvanceOperationTime, optime: ts})
}

// UpdateRecoveryToken unconditionally replaces the stored routing token.
// Like AdvanceOperationTime it is a notification without a reply.
func (c *Client) UpdateRecoveryToken(token bson.Raw) {
	c.notify(request{op: opUpdateRecoveryToken, token: token})
}

func startTransaction(rec *record, opts *TransactionOptions) error {
	switch rec.state {
	case Starting, InProgress:
		return ErrTransactInProgress
	}

	rec.recoveryToken = nil
	rec.ident = rec.ident.NextTxnNumber()

	rec.curWriteConcern = rec.defaultWriteConcern
	rec.curMaxCommitTime = rec.defaultMaxCommitTime
	if opts != nil {
		if opts.WriteConcern != nil {
			rec.curWriteConcern = opts.WriteConcern
		}
		if opts.MaxCommitTime != nil {
			rec.curMaxCommitTime = opts.MaxCommitTime
		}
	}

	rec.state = Starting
	return nil
}

func bindCommand(rec *record, cmd bson.D) bson.D {
	// Even a command bound on a legacy connection keeps the identity
	// alive on the server.
	rec.ident.LastUsed = time.Now()

	if rec.wireVersion < MinWireVersion {
		return cmd
	}

	out := decorateCommand(rec, cmd)
	if rec.state == Starting {
		rec.state = InProgress
	}
	return out
}

func advanceOperationTime(rec *record, ts *primitive.Timestamp) {
	if ts == nil {
		return
	}
	if rec.clock != nil {
		rec.clock.Advance(ts)
	}
	if rec.operationTime == nil || timestampAfter(ts, rec.operationTime) {
		rec.operationTime = ts
	}
}
