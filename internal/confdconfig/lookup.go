// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package confdconfig

import (
	"fmt"
	"os/user"
	"strconv"
)

// lookupUser resolves a username to a uid via the standard library's
// os/user package, the portable equivalent of the original's direct
// getpwnam(3) call.
func lookupUser(name string) (uint32, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric uid %q for user %q", u.Uid, name)
	}
	return uint32(n), nil
}

// lookupGroup resolves a group name to a gid, the portable equivalent
// of getgrnam(3).
func lookupGroup(name string) (uint32, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(g.Gid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric gid %q for group %q", g.Gid, name)
	}
	return uint32(n), nil
}
