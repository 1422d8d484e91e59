// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/confd-io/confd/internal/wire"
)

// pragmas applied to every connection, the same set lib/sqlitepool
// applies to its pooled connections — WAL for concurrent readers during
// a writer's transaction, NORMAL synchronous since the WAL already
// protects against corruption on crash, and a busy timeout so a
// momentarily-contended write blocks instead of failing outright. Each
// is run as its own statement, outside any transaction.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store is confd's typed property store (spec.md §4.1): a single
// SQLite connection guarded by one mutex, so every Get/Set/Delete call
// observes and leaves the database in a consistent, fully-committed
// state with a total order across mutations (spec.md §5).
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
}

// Open opens (creating if necessary) the property store at path,
// bootstrapping a fresh schema or validating an existing one's
// version, mirroring DataStore::Open's "create or validate, never
// guess" behavior.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	exists, err := tablesExist(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	if !exists {
		if err := initSchema(conn, time.Now()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
	} else if err := checkSchemaVersion(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close releases the underlying connection. Safe to call once; a
// second call returns the close error from sqlite, same as
// sqlite.Conn.Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// lookupKeyID resolves a key to its PropertyKeys row, reporting the
// row id, its stored type, and whether it exists at all.
func lookupKeyID(conn *sqlite.Conn, key string) (id int64, kind wire.Kind, found bool, err error) {
	err = sqlitex.Execute(conn,
		`SELECT id, valueType FROM PropertyKeys WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				kind = wire.Kind(stmt.ColumnInt64(1))
				found = true
				return nil
			},
		},
	)
	return id, kind, found, err
}

// Get looks up key. A missing key reports wire.Absent with no error;
// callers that need a StatusNotFound wrap the Absent result
// themselves (internal/rpcserver does, to keep that mapping next to
// the rest of the status taxonomy rather than buried in the store).
func (s *Store) Get(key string) (wire.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, kind, found, err := lookupKeyID(s.conn, key)
	if err != nil {
		return wire.Value{}, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("lookup %q: %w", key, err))
	}
	if !found {
		return wire.Absent, nil
	}
	if kind == wire.KindNull {
		return wire.Null, nil
	}

	table, ok := valueTable(kind)
	if !ok {
		return wire.Value{}, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("key %q has unrecognized stored type %d", key, kind))
	}

	value, err := readValue(s.conn, table, kind, id)
	if err != nil {
		return wire.Value{}, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("read value for %q: %w", key, err))
	}
	return value, nil
}

// readValue fetches the single row for keyId out of table, decoding it
// into a wire.Value of kind.
func readValue(conn *sqlite.Conn, table string, kind wire.Kind, keyID int64) (wire.Value, error) {
	var value wire.Value
	var rowErr error

	err := sqlitex.Execute(conn,
		fmt.Sprintf(`SELECT value FROM %s WHERE keyId = ?`, table),
		&sqlitex.ExecOptions{
			Args: []any{keyID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				switch kind {
				case wire.KindString:
					value = wire.String(stmt.ColumnText(0))
				case wire.KindBlob:
					buf := make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, buf)
					value = wire.Blob(buf)
				case wire.KindInteger:
					value = wire.Integer(uint64(stmt.ColumnInt64(0)))
				case wire.KindReal:
					value = wire.Real(stmt.ColumnFloat(0))
				default:
					rowErr = fmt.Errorf("unexpected kind %s for table %s", kind, table)
				}
				return nil
			},
		},
	)
	if err != nil {
		return wire.Value{}, err
	}
	if rowErr != nil {
		return wire.Value{}, rowErr
	}
	if value.IsAbsent() {
		return wire.Value{}, fmt.Errorf("key id %d missing its row in %s", keyID, table)
	}
	return value, nil
}
