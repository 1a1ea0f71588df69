// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// decorateCommand decides which session and transaction fields to merge
// into an outgoing command, keyed by the current transaction state. The
// caller has already checked the wire version. The input command is never
// mutated.
func decorateCommand(rec *record, cmd bson.D) bson.D {
	out := append(bson.D(nil), cmd...)

	switch rec.state {
	case Starting:
		// Write concern is only valid on the commit command, never on
		// the individual statements of a transaction.
		out, _, _ = extractField(out, "writeConcern")
		var rc interface{}
		out, rc, _ = extractField(out, "readConcern")
		out = append(out,
			bson.E{Key: "lsid", Value: rec.ident.lsid()},
			bson.E{Key: "txnNumber", Value: rec.ident.TxnNumber},
			bson.E{Key: "startTransaction", Value: true},
			bson.E{Key: "autocommit", Value: false},
		)
		if merged := causalReadConcern(rec, rc); merged != nil {
			out = append(out, bson.E{Key: "readConcern", Value: merged})
		} else if rc != nil {
			out = append(out, bson.E{Key: "readConcern", Value: rc})
		}
	case InProgress:
		// Read and write concern are valid only on the first statement
		// of a transaction.
		out, _, _ = extractField(out, "writeConcern")
		out, _, _ = extractField(out, "readConcern")
		out = append(out,
			bson.E{Key: "lsid", Value: rec.ident.lsid()},
			bson.E{Key: "txnNumber", Value: rec.ident.TxnNumber},
			bson.E{Key: "autocommit", Value: false},
		)
	default: // None, Committed, Aborted
		var rc interface{}
		var had bool
		out, rc, had = extractField(out, "readConcern")
		out = append(out, bson.E{Key: "lsid", Value: rec.ident.lsid()})
		if merged := causalReadConcern(rec, rc); merged != nil {
			out = append(out, bson.E{Key: "readConcern", Value: merged})
		} else if had {
			out = append(out, bson.E{Key: "readConcern", Value: rc})
		}
	}

	return dropNullFields(out)
}

// causalReadConcern merges afterClusterTime into the caller-supplied read
// concern, creating one if absent. It returns nil when the session is not
// causally consistent or no operation time has been observed yet, leaving
// the caller's value alone.
func causalReadConcern(rec *record, rc interface{}) bson.D {
	if !rec.consistent || rec.operationTime == nil {
		return nil
	}

	merged := bson.D{}
	if doc, ok := rc.(bson.D); ok {
		for _, e := range doc {
			if e.Key != "afterClusterTime" {
				merged = append(merged, e)
			}
		}
	}
	return append(merged, bson.E{Key: "afterClusterTime", Value: *rec.operationTime})
}

// extractField removes the named field from cmd in place, returning the
// shortened document, the removed value, and whether the field was
// present.
func extractField(cmd bson.D, name string) (bson.D, interface{}, bool) {
	for i, e := range cmd {
		if e.Key == name {
			return append(cmd[:i], cmd[i+1:]...), e.Value, true
		}
	}
	return cmd, nil, false
}

// dropNullFields removes null-valued optional fields so they are never
// transmitted.
func dropNullFields(cmd bson.D) bson.D {
	filtered := cmd[:0]
	for _, e := range cmd {
		if e.Value == nil {
			continue
		}
		if _, isNull := e.Value.(primitive.Null); isNull {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}
