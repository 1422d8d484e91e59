// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/confd-io/confd/internal/wire"
)

// Set writes value to key, creating the property if it does not exist
// and applying the five-rule type-transition discipline from spec.md
// §4.1 (the same rules DataStore::SetValue enforces against the
// in-memory type tag before ever touching the backing rows):
//
//  1. key does not exist: create it with value's type.
//  2. key exists with type Null: adopt value's type (first write after
//     creation-as-null "locks in" the type, the same as the original).
//  3. key exists with the same non-null type as value: overwrite.
//  4. key exists with a different non-null type than value, and value
//     is Null: the property becomes Null (type-erasing reset).
//  5. key exists with a different non-null type than value, and value
//     is non-null: rejected with StatusTypeChangeDenied.
func (s *Store) Set(key string, value wire.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()

	return withTransaction(s.conn, func() error {
		id, existingKind, found, err := lookupKeyID(s.conn, key)
		if err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("lookup %q: %w", key, err))
		}

		if !found {
			return createProperty(s.conn, key, value, now)
		}

		switch {
		case existingKind == wire.KindNull:
			return retypeProperty(s.conn, id, existingKind, value, now)
		case existingKind == value.Kind:
			return overwriteProperty(s.conn, id, existingKind, value, now)
		case value.IsNull():
			return retypeProperty(s.conn, id, existingKind, value, now)
		default:
			return wire.NewStatusErr(wire.StatusTypeChangeDenied,
				fmt.Errorf("key %q is type %s, cannot become %s", key, existingKind, value.Kind))
		}
	})
}

// createProperty inserts a brand-new PropertyKeys row and, for
// non-null values, the matching typed value row.
func createProperty(conn *sqlite.Conn, key string, value wire.Value, now int64) error {
	err := sqlitex.Execute(conn,
		`INSERT INTO PropertyKeys (key, valueType, createdAt, updatedAt) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{key, int64(value.Kind), now, now}},
	)
	if err != nil {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("insert key %q: %w", key, err))
	}

	id := conn.LastInsertRowID()
	if value.IsNull() {
		return nil
	}
	return writeValueRow(conn, id, value)
}

// retypeProperty changes a property's stored type (Null -> something,
// or something -> Null), clearing any old typed row before writing the
// new one: a property has at most one typed value row at a time.
func retypeProperty(conn *sqlite.Conn, id int64, oldKind wire.Kind, value wire.Value, now int64) error {
	if oldTable, ok := valueTable(oldKind); ok {
		if err := sqlitex.Execute(conn,
			fmt.Sprintf(`DELETE FROM %s WHERE keyId = ?`, oldTable),
			&sqlitex.ExecOptions{Args: []any{id}},
		); err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("clear old value: %w", err))
		}
	}

	if err := sqlitex.Execute(conn,
		`UPDATE PropertyKeys SET valueType = ?, updatedAt = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{int64(value.Kind), now, id}},
	); err != nil {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("update key type: %w", err))
	}

	if value.IsNull() {
		return nil
	}
	return writeValueRow(conn, id, value)
}

// overwriteProperty replaces the value of a property whose type is not
// changing: an UPDATE (or INSERT if, implausibly, the typed row is
// missing) on the existing typed table, plus the updatedAt stamp.
func overwriteProperty(conn *sqlite.Conn, id int64, kind wire.Kind, value wire.Value, now int64) error {
	table, ok := valueTable(kind)
	if !ok {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("key id %d has no value table for kind %s", id, kind))
	}

	if err := sqlitex.Execute(conn,
		fmt.Sprintf(`INSERT INTO %s (keyId, value) VALUES (?, ?)
			ON CONFLICT(keyId) DO UPDATE SET value = excluded.value`, table),
		&sqlitex.ExecOptions{Args: []any{id, valueArg(value)}},
	); err != nil {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("write value: %w", err))
	}

	if err := sqlitex.Execute(conn,
		`UPDATE PropertyKeys SET updatedAt = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{now, id}},
	); err != nil {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("update timestamp: %w", err))
	}
	return nil
}

// writeValueRow inserts a fresh typed value row for a key that has
// none yet (a brand-new property, or one just retyped away from Null).
func writeValueRow(conn *sqlite.Conn, id int64, value wire.Value) error {
	table, ok := valueTable(value.Kind)
	if !ok {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("no value table for kind %s", value.Kind))
	}
	if err := sqlitex.Execute(conn,
		fmt.Sprintf(`INSERT INTO %s (keyId, value) VALUES (?, ?)`, table),
		&sqlitex.ExecOptions{Args: []any{id, valueArg(value)}},
	); err != nil {
		return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("insert value: %w", err))
	}
	return nil
}

// valueArg converts a wire.Value to the Go type sqlitex binds for its
// kind: sqlite has no separate boolean or unsigned-integer affinity, so
// an integer value binds as int64 and a blob binds as its raw bytes.
func valueArg(value wire.Value) any {
	switch value.Kind {
	case wire.KindString:
		return value.Str()
	case wire.KindBlob:
		return value.BlobBytes()
	case wire.KindInteger:
		return int64(value.Uint64())
	case wire.KindReal:
		return value.Float64()
	default:
		return nil
	}
}

// Delete removes exactly one property. Per spec.md §4.1, deleting a
// key that has children (other keys prefixed "key.") is rejected
// rather than silently deleting a subtree — DeletePrefix exists for
// that.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withTransaction(s.conn, func() error {
		_, _, found, err := lookupKeyID(s.conn, key)
		if err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("lookup %q: %w", key, err))
		}
		if !found {
			return wire.NewStatusErr(wire.StatusNotFound, fmt.Errorf("key %q not found", key))
		}

		hasChildren, err := keyHasChildren(s.conn, key)
		if err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("check children of %q: %w", key, err))
		}
		if hasChildren {
			return wire.NewStatusErr(wire.StatusInvalidArguments, fmt.Errorf("key %q has child keys; use deletePrefix", key))
		}

		if err := sqlitex.Execute(s.conn,
			`DELETE FROM PropertyKeys WHERE key = ?`,
			&sqlitex.ExecOptions{Args: []any{key}},
		); err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("delete %q: %w", key, err))
		}
		return nil
	})
}

// keyHasChildren reports whether any other key is prefixed "key.",
// the same parent/child relationship spec.md §4.4 and §4.1 both use:
// a dotted hierarchy, not a separate tree structure.
func keyHasChildren(conn *sqlite.Conn, key string) (bool, error) {
	var found bool
	err := sqlitex.Execute(conn,
		`SELECT 1 FROM PropertyKeys WHERE key LIKE ? ESCAPE '\' LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{likeChildPrefix(key)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				return nil
			},
		},
	)
	return found, err
}

// likeChildPrefix builds a LIKE pattern matching "key." followed by
// anything, escaping SQL LIKE metacharacters in key itself so a key
// containing "%" or "_" cannot widen the match.
func likeChildPrefix(key string) string {
	escaped := escapeLike(key)
	return escaped + ".%"
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// DeletePrefix removes every property whose key is prefixed "prefix.",
// returning the number of rows removed. A key equal to prefix itself
// is never touched — callers that also want it gone must Delete it
// separately. This is the only way to remove a subtree in one call,
// and per spec.md §4.1 and the SUPPLEMENTED FEATURES note, it is
// reachable only through confdctl's local invocation, never through
// the wire protocol.
func (s *Store) DeletePrefix(prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	err := withTransaction(s.conn, func() error {
		escaped := escapeLike(prefix)
		pattern := escaped + ".%"

		err := sqlitex.Execute(s.conn,
			`DELETE FROM PropertyKeys WHERE key LIKE ? ESCAPE '\'`,
			&sqlitex.ExecOptions{Args: []any{pattern}},
		)
		if err != nil {
			return wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("delete prefix %q: %w", prefix, err))
		}
		deleted = s.conn.Changes()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
