// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"sort"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/confd-io/confd/internal/wire"
)

// Entry is one property, as returned by All. It exists for
// confdctl's dump subcommand and maintenance tooling that needs to
// enumerate the whole store; the RPC server never needs it, since
// spec.md's wire protocol has no enumeration endpoint.
type Entry struct {
	Key   string
	Value wire.Value
}

// All returns every property in the store, ordered by key.
func (s *Store) All() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type row struct {
		id  int64
		key string
		typ wire.Kind
	}
	var rows []row

	err := sqlitex.Execute(s.conn,
		`SELECT id, key, valueType FROM PropertyKeys`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rows = append(rows, row{
					id:  stmt.ColumnInt64(0),
					key: stmt.ColumnText(1),
					typ: wire.Kind(stmt.ColumnInt64(2)),
				})
				return nil
			},
		},
	)
	if err != nil {
		return nil, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("list keys: %w", err))
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		if r.typ == wire.KindNull {
			entries = append(entries, Entry{Key: r.key, Value: wire.Null})
			continue
		}
		table, ok := valueTable(r.typ)
		if !ok {
			return nil, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("key %q has unrecognized stored type %d", r.key, r.typ))
		}
		value, err := readValue(s.conn, table, r.typ, r.id)
		if err != nil {
			return nil, wire.NewStatusErr(wire.StatusStoreError, fmt.Errorf("read value for %q: %w", r.key, err))
		}
		entries = append(entries, Entry{Key: r.key, Value: value})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
