// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcserver implements confd's RPC server (spec.md §4.3): a
// Unix domain socket listener, a goroutine-per-connection accept loop,
// and the per-connection request/reply dispatch loop that ties
// internal/wire's framing and codec, internal/access's policy check,
// and internal/store's mutations together.
//
// The listener lifecycle — stale-socket removal, net.Listen("unix",
// ...), chmod, an accept loop that exits cleanly on context
// cancellation — follows cmd/bureau-daemon's startObserveListener and
// acceptObserveConnections. Where that daemon's per-connection handler
// does a single JSON handshake and then either closes or hands the
// connection to a byte-bridge, confd's handler instead loops, reading
// and dispatching one framed wire.Header/payload pair after another
// for as long as the connection stays open — the persistent
// multi-request session spec.md §4.3's state machine describes.
package rpcserver
