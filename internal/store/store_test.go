// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"path/filepath"
	"testing"

	"github.com/confd-io/confd/internal/wire"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "confd.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKeyIsAbsent(t *testing.T) {
	s := openTestStore(t)

	v, err := s.Get("no.such.key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.IsAbsent() {
		t.Errorf("got %+v, want Absent", v)
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("net.hostname", wire.String("gateway")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get("net.hostname")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Kind != wire.KindString || v.Str() != "gateway" {
		t.Errorf("got %+v", v)
	}
}

func TestSetOverwriteSameType(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("sys.boot.count", wire.Integer(1)); err != nil {
		t.Fatalf("Set 1: %v", err)
	}
	if err := s.Set("sys.boot.count", wire.Integer(2)); err != nil {
		t.Fatalf("Set 2: %v", err)
	}
	v, err := s.Get("sys.boot.count")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Uint64() != 2 {
		t.Errorf("got %d, want 2", v.Uint64())
	}
}

func TestSetTypeChangeDenied(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("k", wire.Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := s.Set("k", wire.String("not an integer"))
	if wire.StatusOf(err) != wire.StatusTypeChangeDenied {
		t.Fatalf("got %v, want StatusTypeChangeDenied", err)
	}
}

func TestSetNullThenAdoptsNextType(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("new.k", wire.Null); err != nil {
		t.Fatalf("Set null: %v", err)
	}
	v, err := s.Get("new.k")
	if err != nil || !v.IsNull() {
		t.Fatalf("got %+v, err %v; want Null", v, err)
	}

	if err := s.Set("new.k", wire.Real(3.5)); err != nil {
		t.Fatalf("Set real: %v", err)
	}
	v, err = s.Get("new.k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Kind != wire.KindReal || v.Float64() != 3.5 {
		t.Errorf("got %+v", v)
	}
}

func TestSetNonNullToNullResets(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("k", wire.Blob([]byte("hi"))); err != nil {
		t.Fatalf("Set blob: %v", err)
	}
	if err := s.Set("k", wire.Null); err != nil {
		t.Fatalf("Set null: %v", err)
	}
	v, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("got %+v, want Null", v)
	}
}

func TestDeleteRejectsKeyWithChildren(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("a.b", wire.Integer(1)); err != nil {
		t.Fatalf("Set a.b: %v", err)
	}
	if err := s.Set("a.b.c", wire.Integer(2)); err != nil {
		t.Fatalf("Set a.b.c: %v", err)
	}

	err := s.Delete("a.b")
	if wire.StatusOf(err) != wire.StatusInvalidArguments {
		t.Fatalf("got %v, want StatusInvalidArguments", err)
	}
}

func TestDeleteMissingKeyIsNotFound(t *testing.T) {
	s := openTestStore(t)

	err := s.Delete("missing")
	if wire.StatusOf(err) != wire.StatusNotFound {
		t.Fatalf("got %v, want StatusNotFound", err)
	}
}

func TestDeleteLeafKey(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("a.leaf", wire.Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete("a.leaf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	v, err := s.Get("a.leaf")
	if err != nil || !v.IsAbsent() {
		t.Fatalf("got %+v, err %v; want Absent", v, err)
	}
}

func TestDeletePrefixRemovesSubtreeExhaustively(t *testing.T) {
	s := openTestStore(t)

	values := map[string]uint64{"a.b.x": 1, "a.b.y": 2, "a.b": 3, "a.c": 4}
	for k, v := range values {
		if err := s.Set(k, wire.Integer(v)); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}

	n, err := s.DeletePrefix("a.b")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}

	for _, k := range []string{"a.b.x", "a.b.y"} {
		v, err := s.Get(k)
		if err != nil || !v.IsAbsent() {
			t.Fatalf("key %q: got %+v, err %v; want Absent", k, v, err)
		}
	}

	v, err := s.Get("a.b")
	if err != nil || v.IsAbsent() || v.Uint64() != 3 {
		t.Fatalf("key %q should have survived with value 3; got %+v, err %v", "a.b", v, err)
	}

	v, err = s.Get("a.c")
	if err != nil || v.IsAbsent() || v.Uint64() != 4 {
		t.Fatalf("key %q should have survived with value 4; got %+v, err %v", "a.c", v, err)
	}
}

func TestDeletePrefixDoesNotMatchLikeMetacharacters(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("a_b", wire.Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("a_b.child", wire.Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("axb.c", wire.Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	n, err := s.DeletePrefix("a_b")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d rows, want 1 (underscore must not act as a LIKE wildcard, so axb.c must survive)", n)
	}

	v, err := s.Get("axb.c")
	if err != nil || v.IsAbsent() {
		t.Fatalf("key %q should have survived; got %+v, err %v", "axb.c", v, err)
	}
	v, err = s.Get("a_b")
	if err != nil || v.IsAbsent() {
		t.Fatalf("key %q should have survived (exact match is never deleted); got %+v, err %v", "a_b", v, err)
	}
}

func TestSchemaVersionPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confd.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Set("k", wire.String("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	v, err := s2.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Str() != "v" {
		t.Errorf("got %+v, want persisted value", v)
	}
}
