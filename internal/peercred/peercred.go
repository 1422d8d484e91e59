// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package peercred

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Credentials is the peer identity captured once when a connection is
// accepted (spec.md §3's "Client session"). It never changes for the
// lifetime of the connection even if the peer process later drops
// privileges.
type Credentials struct {
	UID uint32
	GID uint32
	PID int32
}

// Get retrieves the credentials of the process on the other end of a
// Unix domain socket connection via SO_PEERCRED. conn is typed
// *net.UnixConn because SO_PEERCRED is only meaningful on AF_UNIX
// sockets.
func Get(conn *net.UnixConn) (Credentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Credentials{}, fmt.Errorf("peercred: access raw connection: %w", err)
	}

	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("peercred: control: %w", err)
	}
	if sockErr != nil {
		return Credentials{}, fmt.Errorf("peercred: getsockopt(SO_PEERCRED): %w", sockErr)
	}

	return Credentials{UID: ucred.Uid, GID: ucred.Gid, PID: ucred.Pid}, nil
}
