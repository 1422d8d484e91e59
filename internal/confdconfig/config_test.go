// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package confdconfig

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFileMinimal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "confd.yaml"), `
rpc:
  listen: /run/confd.sock
storage:
  dir: `+dir+`
  db: confd.db
`)

	cfg, err := LoadFile(filepath.Join(dir, "confd.yaml"), discardLogger())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SocketPath != "/run/confd.sock" {
		t.Errorf("got socket path %q", cfg.SocketPath)
	}
	if cfg.StoragePath != filepath.Join(dir, "confd.db") {
		t.Errorf("got storage path %q", cfg.StoragePath)
	}
	if cfg.SocketMode != defaultSocketMode {
		t.Errorf("got socket mode %o, want %o", cfg.SocketMode, defaultSocketMode)
	}
	if cfg.Gate == nil || cfg.Gate.Allowed(0, 0, "anything") {
		t.Error("expected an empty, deny-all gate")
	}
}

func TestLoadFileMissingRPCSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "confd.yaml"), `
storage:
  dir: `+dir+`
  db: confd.db
`)

	if _, err := LoadFile(filepath.Join(dir, "confd.yaml"), discardLogger()); err == nil {
		t.Fatal("expected error for missing rpc section")
	}
}

func TestLoadFileWithNumericAccessAllow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "confd.yaml"), `
rpc:
  listen: /run/confd.sock
  umode: 0o660
storage:
  dir: `+dir+`
  db: confd.db
access:
  allow:
    - user: 1000
      paths: ["net.*"]
`)

	cfg, err := LoadFile(filepath.Join(dir, "confd.yaml"), discardLogger())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Gate.Allowed(1000, 0, "net.hostname") {
		t.Error("expected uid 1000 to be allowed under net.*")
	}
	if cfg.Gate.Allowed(1001, 0, "net.hostname") {
		t.Error("expected uid 1001 to be denied")
	}
	if cfg.SocketMode != 0o660 {
		t.Errorf("got socket mode %o, want 0660", cfg.SocketMode)
	}
}

func TestLoadFileWithInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "extra.yaml"), `
access:
  allow:
    - group: 2000
      paths: ["db.*"]
`)
	writeFile(t, filepath.Join(dir, "confd.yaml"), `
rpc:
  listen: /run/confd.sock
storage:
  dir: `+dir+`
  db: confd.db
include:
  - path: extra.yaml
`)

	cfg, err := LoadFile(filepath.Join(dir, "confd.yaml"), discardLogger())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Gate.Allowed(0, 2000, "db.password") {
		t.Error("expected gid 2000 to be allowed under db.* from the included file")
	}
}

func TestLoadFileRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), `
rpc:
  listen: /run/confd.sock
storage:
  dir: `+dir+`
  db: confd.db
include:
  - path: b.yaml
`)
	writeFile(t, filepath.Join(dir, "b.yaml"), `
include:
  - path: a.yaml
`)

	if _, err := LoadFile(filepath.Join(dir, "a.yaml"), discardLogger()); err == nil {
		t.Fatal("expected include cycle to be rejected")
	}
}
