// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Package access implements confd's access gate (spec.md §4.4): a
// linear allow-list of rules, each naming an optional uid, an optional
// gid, and a set of key patterns, checked against a caller's peer
// credentials and a target key on every request.
//
// This mirrors the AccessDescriptor struct in the original daemon's
// Config component (optional user, optional group, a set of allowed
// key paths) rather than inventing a different shape: confd keeps the
// rule representation, only moving its construction out of a bespoke
// TOML reader and into internal/confdconfig's YAML loader.
package access
