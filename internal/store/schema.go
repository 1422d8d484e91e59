// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"strconv"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/confd-io/confd/internal/wire"
)

// currentSchemaVersion is the highest schema version this build of
// confd understands. The daemon refuses to open a database stamped
// with a newer version (spec.md §4.1's "the daemon must refuse to run
// against an unrecognized schema version rather than guess"), the same
// fatal posture DataStore::Open takes against a MetaInfo.schemaVersion
// greater than kCurrentSchemaVersion. A database stamped with an older
// version is accepted as-is, since schema versions only ever move
// forward.
const currentSchemaVersion = 1

// schemaDDL creates every table and index a fresh database needs. It
// is one script, run inside one transaction, matching the original
// DataStore::Open bootstrap: either the whole schema exists or none of
// it does, never a half-created database.
const schemaDDL = `
CREATE TABLE MetaInfo (
	key   TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
);

CREATE TABLE PropertyKeys (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	key       TEXT NOT NULL,
	valueType INTEGER NOT NULL,
	createdAt INTEGER NOT NULL,
	updatedAt INTEGER NOT NULL
);
CREATE UNIQUE INDEX PropertyKeys_key ON PropertyKeys(key);

CREATE TABLE PropertyValuesString (
	keyId INTEGER PRIMARY KEY NOT NULL REFERENCES PropertyKeys(id) ON DELETE CASCADE,
	value TEXT NOT NULL
);

CREATE TABLE PropertyValuesBlob (
	keyId INTEGER PRIMARY KEY NOT NULL REFERENCES PropertyKeys(id) ON DELETE CASCADE,
	value BLOB NOT NULL
);

CREATE TABLE PropertyValuesInteger (
	keyId INTEGER PRIMARY KEY NOT NULL REFERENCES PropertyKeys(id) ON DELETE CASCADE,
	value INTEGER NOT NULL
);

CREATE TABLE PropertyValuesReal (
	keyId INTEGER PRIMARY KEY NOT NULL REFERENCES PropertyKeys(id) ON DELETE CASCADE,
	value REAL NOT NULL
);
`

// initSchema bootstraps a freshly created database: the DDL above plus
// the MetaInfo rows a later Open needs to recognize this file as its
// own (schema.version) and to report provenance (creator.*), the same
// two concerns DataStore::Open's bootstrap path and sativa-confd's
// creator-metadata addition cover separately in the original.
func initSchema(conn *sqlite.Conn, now time.Time) error {
	return withTransaction(conn, func() error {
		if err := sqlitex.ExecuteScript(conn, schemaDDL, nil); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		meta := map[string]string{
			"schema.version":   fmt.Sprintf("%d", currentSchemaVersion),
			"creator.swname":   "confd",
			"creator.swvendor": "confd-io",
			"creator.created":  fmt.Sprintf("%d", now.Unix()),
		}
		for key, value := range meta {
			if err := sqlitex.Execute(conn,
				`INSERT INTO MetaInfo (key, value) VALUES (?, ?)`,
				&sqlitex.ExecOptions{Args: []any{key, value}},
			); err != nil {
				return fmt.Errorf("insert meta %q: %w", key, err)
			}
		}
		return nil
	})
}

// metaValue reads a single MetaInfo row. ok is false when the key is
// absent, which a fresh-but-foreign database (one with the table but
// not the row) can legitimately produce.
func metaValue(conn *sqlite.Conn, key string) (value string, ok bool, err error) {
	err = sqlitex.Execute(conn,
		`SELECT value FROM MetaInfo WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnText(0)
				ok = true
				return nil
			},
		},
	)
	return value, ok, err
}

// checkSchemaVersion fails fatally (spec.md's posture, not a
// recoverable StatusErr) when the database's stamped schema version is
// newer than the one this build understands. A version at or below
// currentSchemaVersion is valid — schema versions are monotonic, and
// an older database is simply one this build has not needed to
// migrate away from yet.
func checkSchemaVersion(conn *sqlite.Conn) error {
	raw, ok, err := metaValue(conn, "schema.version")
	if err != nil {
		return fmt.Errorf("read schema.version: %w", err)
	}
	if !ok {
		return fmt.Errorf("database has no schema.version meta row; refusing to open a foreign database")
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("database schema.version %q is not a number: %w", raw, err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than the supported version %d", version, currentSchemaVersion)
	}
	return nil
}

// tablesExist reports whether the PropertyKeys table is already
// present, the cheapest reliable signal that a database has been
// bootstrapped before.
func tablesExist(conn *sqlite.Conn) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'PropertyKeys'`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		},
	)
	return exists, err
}

// valueTable returns the name of the typed value table backing kind,
// and false for a kind with no value table (Absent, Null).
func valueTable(kind wire.Kind) (string, bool) {
	switch kind {
	case wire.KindString:
		return "PropertyValuesString", true
	case wire.KindBlob:
		return "PropertyValuesBlob", true
	case wire.KindInteger:
		return "PropertyValuesInteger", true
	case wire.KindReal:
		return "PropertyValuesReal", true
	default:
		return "", false
	}
}

// withTransaction runs fn inside a BEGIN IMMEDIATE/COMMIT block,
// rolling back on error or panic. confd mutations are rare enough
// relative to reads that a plain transaction (rather than the nested
// savepoint machinery lib/sqlitepool offers pooled connections) is all
// a single-connection store needs.
func withTransaction(conn *sqlite.Conn, fn func() error) (err error) {
	if err = sqlitex.ExecuteTransient(conn, "BEGIN IMMEDIATE", nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlitex.ExecuteTransient(conn, "ROLLBACK", nil)
			panic(p)
		}
		if err != nil {
			_ = sqlitex.ExecuteTransient(conn, "ROLLBACK", nil)
			return
		}
		err = sqlitex.ExecuteTransient(conn, "COMMIT", nil)
	}()

	err = fn()
	return err
}
