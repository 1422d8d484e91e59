// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements confd's framed RPC wire format: a fixed
// 8-byte header followed by a CBOR-encoded, self-describing payload.
//
// The header format, endpoints, and status taxonomy mirror the
// original confd RPC protocol. ReadMessage/WriteMessage (built on
// DecodeHeader/Header.Encode) and the Encode*/Decode* payload
// functions in payload.go are the only entry points a transport layer
// needs — internal/rpcserver builds on top of them, and a client
// implementation would use exactly the same set.
//
//	header.go:  fixed-size header, endpoints, flags
//	value.go:   the property value sum type
//	payload.go: request/reply payload encode/decode, including the
//	            value type's CBOR mapping
//	status.go:  the error taxonomy carried on the wire and in Go errors
package wire
