// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Package peercred captures a Unix domain socket peer's credentials
// (uid, gid, pid) at accept time via SO_PEERCRED, the kernel-verified
// identity the access gate (internal/access) checks requests against.
//
// The corpus has no existing SO_PEERCRED call to adapt — the teacher's
// own servicetoken package explains it avoids SO_PEERCRED because its
// sandboxed namespaces can remap the reported uid to something
// meaningless. confd's deployment model is the simple one the original
// daemon assumed: a single, non-sandboxed peer namespace, where
// SO_PEERCRED is exactly the signal spec.md §4.4 calls for. This
// package still reaches for the teacher's established
// golang.org/x/sys/unix dependency (used elsewhere in the corpus for
// mmap/mlock/ioctl-level syscalls) rather than hand-rolling a cgo call.
package peercred
