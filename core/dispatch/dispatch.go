// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package dispatch ties sessions to the topology: it checks sessions out
// of the topology with retry on cluster churn, returns their identities on
// release, and runs whole transactions through WithTransaction.
package dispatch

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	retry "github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/ikmak/drivercore/core/session"
)

// CheckoutType tells the topology what kind of server the session must be
// bound to.
type CheckoutType uint8

// The valid checkout types.
const (
	Read CheckoutType = iota
	Write
)

func (t CheckoutType) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// ErrTopologyChanged is the retry signal a Topology returns when the
// cluster topology changed mid-checkout and no connection was bound.
var ErrTopologyChanged = errors.New("topology changed during session checkout")

// Topology hands out sessions bound to live connections and takes their
// identities back when they end.
type Topology interface {
	CheckoutSession(ctx context.Context, typ CheckoutType, mode session.Type, opts *session.ClientOptions) (*session.Client, error)
	CheckinSession(ident session.ServerSession)
}

// OperationOptions are the per-operation options higher layers thread
// through to this package. An explicit session supplied by the caller is
// reused instead of checking out an implicit one.
type OperationOptions struct {
	Session *session.Client
}

// Config adjusts session acquisition and transaction behavior. The zero
// value retries checkout every 100ms indefinitely, runs callbacks without
// a deadline, and logs nowhere.
type Config struct {
	// Logger receives debug output. Nil discards.
	Logger logrus.FieldLogger

	// CheckoutBackoff is the fixed interval between checkout retries.
	CheckoutBackoff time.Duration

	// MaxCheckoutRetries caps the number of checkout retries. Zero
	// retries indefinitely.
	MaxCheckoutRetries uint64

	// CallbackTimeout bounds the execution time of a WithTransaction
	// callback. Zero leaves it unbounded.
	CallbackTimeout time.Duration

	// SessionOptions are applied to every session this package checks
	// out.
	SessionOptions *session.ClientOptions
}

const defaultCheckoutBackoff = 100 * time.Millisecond

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (cfg *Config) logger() logrus.FieldLogger {
	if cfg != nil && cfg.Logger != nil {
		return cfg.Logger
	}
	return discardLogger
}

func (cfg *Config) backoff() retry.Backoff {
	interval := defaultCheckoutBackoff
	if cfg != nil && cfg.CheckoutBackoff > 0 {
		interval = cfg.CheckoutBackoff
	}
	b := retry.NewConstant(interval)
	if cfg != nil && cfg.MaxCheckoutRetries > 0 {
		b = retry.WithMaxRetries(cfg.MaxCheckoutRetries, b)
	}
	return b
}

// StartSession checks an explicit session out of the topology, retrying at
// a fixed interval while the topology reports churn.
func StartSession(ctx context.Context, topo Topology, typ CheckoutType, cfg *Config) (*session.Client, error) {
	return checkout(ctx, topo, typ, session.Explicit, cfg)
}

// StartImplicitSession checks out a session for a single operation that
// was issued without one. If the caller already supplied an explicit
// session in opts it is reused as is.
func StartImplicitSession(ctx context.Context, topo Topology, typ CheckoutType, cfg *Config, opts *OperationOptions) (*session.Client, error) {
	if opts != nil && opts.Session != nil {
		return opts.Session, nil
	}
	return checkout(ctx, topo, typ, session.Implicit, cfg)
}

func checkout(ctx context.Context, topo Topology, typ CheckoutType, mode session.Type, cfg *Config) (*session.Client, error) {
	log := cfg.logger()

	var sessOpts *session.ClientOptions
	if cfg != nil {
		sessOpts = cfg.SessionOptions
	}

	var sess *session.Client
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		s, err := topo.CheckoutSession(ctx, typ, mode, sessOpts)
		if errors.Cause(err) == ErrTopologyChanged {
			log.WithField("type", typ.String()).Debug("topology changed during session checkout, retrying")
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to check out session")
	}
	return sess, nil
}

// EndSession stops the session and returns its identity to the topology.
func EndSession(topo Topology, sess *session.Client) error {
	ident, err := sess.EndSession()
	if err != nil {
		return err
	}
	topo.CheckinSession(ident)
	return nil
}

// EndImplicitSession checks the identity back in only when the session was
// created implicitly. Explicit sessions are left running for their owner.
func EndImplicitSession(topo Topology, sess *session.Client) error {
	ident, checkin, err := sess.EndImplicitSession()
	if err != nil {
		return err
	}
	if checkin {
		topo.CheckinSession(ident)
	}
	return nil
}
