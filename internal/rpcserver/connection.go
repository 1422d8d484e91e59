// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"errors"
	"io"
	"net"

	"github.com/confd-io/confd/internal/peercred"
	"github.com/confd-io/confd/internal/wire"
)

// handleConnection runs one connection's read-dispatch-reply loop
// until the peer disconnects or a framing violation occurs — the
// state machine from spec.md §4.3: Accepted → AwaitingHeader →
// AwaitingPayload(len) → Dispatch → AwaitingHeader, with terminal
// transitions Closed (peer EOF) and Aborted (framing violation or
// write failure). An unknown endpoint is not terminal: dispatch answers
// it with a NotSupported reply and the loop continues.
func (s *Server) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	creds, err := peercred.Get(conn)
	if err != nil {
		s.logger.Error("rpcserver: failed to capture peer credentials", "error", err)
		return
	}

	for {
		header, payload, err := wire.ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("rpcserver: connection closed", "uid", creds.UID, "error", err)
			}
			return
		}

		replyPayload := s.dispatch(header, payload, creds)

		replyHeader := wire.Header{
			Version:  wire.ProtocolVersion,
			Endpoint: header.Endpoint,
			Tag:      header.Tag,
			Flags:    wire.FlagReply,
		}
		if err := wire.WriteMessage(conn, replyHeader, replyPayload); err != nil {
			s.logger.Debug("rpcserver: write reply failed, closing connection", "uid", creds.UID, "error", err)
			return
		}
	}
}
