// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Package store implements confd's typed property store: a
// schema-versioned, transactional key/value engine over a SQLite
// database, built on zombiezen.com/go/sqlite the way the teacher's
// lib/sqlitepool wraps it for other Bureau services — except that a
// property store needs exactly one writer with a total mutation
// order (spec.md §5: "It carries one mutex; all public operations
// take it"), so Store owns a single *sqlite.Conn behind a sync.Mutex
// rather than a pool of interchangeable connections.
//
//	schema.go: DDL, schema bootstrap, schema-version check, and the
//	           transaction helper the mutations share
//	store.go:  Store type, Open/Close, Get
//	mutate.go: Set, Delete, DeletePrefix
package store
