// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"github.com/confd-io/confd/internal/peercred"
	"github.com/confd-io/confd/internal/wire"
)

// dispatch implements spec.md §4.3's dispatch sequence for one
// complete, validated frame: consult the access policy, call the
// matching handler, and encode its result. It never returns an error
// itself — every failure mode (access denied, decode failure, unknown
// endpoint, store error) is folded into a reply payload carrying a
// non-Success status, so the connection stays open and the
// caller always gets a tagged reply.
func (s *Server) dispatch(header wire.Header, payload []byte, creds peercred.Credentials) []byte {
	switch header.Endpoint {
	case wire.EndpointQuery:
		return s.dispatchQuery(payload, creds)
	case wire.EndpointUpdate:
		return s.dispatchUpdate(payload, creds)
	default:
		return errorQueryReply(wire.StatusNotSupported)
	}
}

func (s *Server) dispatchQuery(payload []byte, creds peercred.Credentials) []byte {
	key, forceFloat, err := wire.DecodeQueryRequest(payload)
	if err != nil {
		return errorQueryReply(wire.StatusOf(err))
	}

	if !s.gate.Allowed(creds.UID, creds.GID, key) {
		return mustEncodeQueryReply(key, wire.StatusAccessDenied, wire.Value{}, false)
	}

	value, err := s.store.Get(key)
	if err != nil {
		return mustEncodeQueryReply(key, wire.StatusOf(err), wire.Value{}, false)
	}

	if value.IsAbsent() {
		return mustEncodeQueryReply(key, wire.StatusNotFound, wire.Value{}, false)
	}

	// A null property still exists: found is true and the reply omits
	// "value" (EncodeQueryReply never emits it for a Null value), but
	// the status is still Success. StatusNullValue is a typed client
	// library's concern (§7's typed readers reject a null where they
	// expect a scalar) — it never collapses the wire found flag here.
	return mustEncodeQueryReply(key, wire.StatusSuccess, value, forceFloat)
}

func (s *Server) dispatchUpdate(payload []byte, creds peercred.Credentials) []byte {
	key, value, err := wire.DecodeUpdateRequest(payload)
	if err != nil {
		return errorUpdateReply(wire.StatusOf(err))
	}

	if !s.gate.Allowed(creds.UID, creds.GID, key) {
		return mustEncodeUpdateReply(key, wire.StatusAccessDenied)
	}

	if err := s.store.Set(key, value); err != nil {
		return mustEncodeUpdateReply(key, wire.StatusOf(err))
	}
	return mustEncodeUpdateReply(key, wire.StatusSuccess)
}

// errorQueryReply builds a query-endpoint reply for a request that
// never decoded far enough to recover a key.
func errorQueryReply(status wire.Status) []byte {
	return mustEncodeQueryReply("", status, wire.Value{}, false)
}

// errorUpdateReply builds an update-endpoint reply for a request that
// never decoded far enough to recover a key.
func errorUpdateReply(status wire.Status) []byte {
	return mustEncodeUpdateReply("", status)
}

// mustEncodeQueryReply encodes a query reply, falling back to an
// empty payload on the unreachable error path (every argument here is
// already a valid Go value; encMode only fails on unsupported types).
func mustEncodeQueryReply(key string, status wire.Status, value wire.Value, forceFloat bool) []byte {
	reply, err := wire.EncodeQueryReply(key, status, value, forceFloat)
	if err != nil {
		return nil
	}
	return reply
}

func mustEncodeUpdateReply(key string, status wire.Status) []byte {
	reply, err := wire.EncodeUpdateReply(key, status)
	if err != nil {
		return nil
	}
	return reply
}
