// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/confd-io/confd/internal/access"
	"github.com/confd-io/confd/internal/store"
)

// Server is confd's RPC listener: it owns the Unix domain socket,
// accepts connections, and dispatches requests against a Store guarded
// by a Gate.
type Server struct {
	listener *net.UnixListener
	path     string
	store    *store.Store
	gate     *access.Gate
	logger   *slog.Logger
}

// Listen creates the Unix domain socket at path (removing any stale
// socket left by a prior run), applies mode, and returns a Server
// ready to Serve. Mirrors startObserveListener's sequence: ensure the
// parent directory exists, clear the stale socket, listen, chmod.
func Listen(path string, mode os.FileMode, st *store.Store, gate *access.Gate, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rpcserver: create socket directory: %w", err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("rpcserver: remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("rpcserver: listen on %s: %w", path, err)
	}
	unixLn := ln.(*net.UnixListener)

	if err := os.Chmod(path, mode); err != nil {
		unixLn.Close()
		return nil, fmt.Errorf("rpcserver: chmod socket: %w", err)
	}

	return &Server{
		listener: unixLn,
		path:     path,
		store:    st,
		gate:     gate,
		logger:   logger,
	}, nil
}

// Serve runs the accept loop until ctx is canceled or the listener is
// closed. It returns nil on a clean shutdown triggered by ctx.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if strings.Contains(err.Error(), "use of closed network connection") {
					return nil
				}
				return fmt.Errorf("rpcserver: accept: %w", err)
			}
		}
		go s.handleConnection(conn.(*net.UnixConn))
	}
}

// Close closes the listener and unlinks the socket file, matching
// stopObserveListener's close-then-unlink sequence.
func (s *Server) Close() error {
	err := s.listener.Close()
	if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
		if err == nil {
			err = removeErr
		}
	}
	return err
}
