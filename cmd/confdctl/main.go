// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Command confdctl is a command-line client for confd. Its get and set
// subcommands speak the wire protocol over confd's Unix domain socket,
// exactly as any other client would; its delete, deletePrefix, and
// dump subcommands open the property store directly, since spec.md
// never allocates a wire endpoint for bulk mutation or enumeration.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/confd-io/confd/internal/store"
	"github.com/confd-io/confd/internal/wire"
)

const defaultSocketPath = "/var/run/confd/confd.sock"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageError()
	}

	switch args[0] {
	case "get":
		return runGet(args[1:])
	case "set":
		return runSet(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "deletePrefix":
		return runDeletePrefix(args[1:])
	case "dump":
		return runDump(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf(`usage: confdctl <command> [flags]

commands:
  get    -socket=PATH [-forceFloat] KEY
  set    -socket=PATH KEY TYPE VALUE         (TYPE is string, integer, real, blob, bool, or null)
  delete -db=PATH KEY
  deletePrefix -db=PATH PREFIX
  dump   -db=PATH`)
}

// dial connects to confd's socket; roundTrip then performs the single
// request/reply exchange. confdctl never keeps a connection open
// between commands; each invocation is a fresh process.
func dial(socketPath string) (*net.UnixConn, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	return conn.(*net.UnixConn), nil
}

func roundTrip(conn *net.UnixConn, endpoint wire.Endpoint, payload []byte) ([]byte, error) {
	header := wire.Header{Version: wire.ProtocolVersion, Endpoint: endpoint, Tag: 1}
	if err := wire.WriteMessage(conn, header, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := wire.ReadMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	socketPath := fs.String("socket", defaultSocketPath, "path to confd's RPC socket")
	forceFloat := fs.Bool("forceFloat", false, "request 32-bit float encoding for real values")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("get requires exactly one key argument")
	}
	key := fs.Arg(0)

	conn, err := dial(*socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	request, err := wire.EncodeQueryRequest(key, *forceFloat)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	reply, err := roundTrip(conn, wire.EndpointQuery, request)
	if err != nil {
		return err
	}

	_, found, status, value, _, err := wire.DecodeReply(reply, "found")
	if err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if !found {
		return fmt.Errorf("%s: %s", key, status)
	}
	fmt.Println(value.String())
	return nil
}

func runSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	socketPath := fs.String("socket", defaultSocketPath, "path to confd's RPC socket")
	fs.Parse(args)

	if fs.NArg() != 3 {
		return fmt.Errorf("set requires KEY TYPE VALUE arguments")
	}
	key, typ, raw := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	value, err := parseValue(typ, raw)
	if err != nil {
		return err
	}

	conn, err := dial(*socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	request, err := wire.EncodeUpdateRequest(key, value)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	reply, err := roundTrip(conn, wire.EndpointUpdate, request)
	if err != nil {
		return err
	}

	_, updated, status, _, _, err := wire.DecodeReply(reply, "updated")
	if err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if !updated {
		return fmt.Errorf("%s: %s", key, status)
	}
	return nil
}

// parseValue turns a type name and a textual argument into a
// wire.Value. confdctl only needs to round-trip values a human types on
// a command line, so it accepts the decimal and string forms rather
// than the CBOR type zoo wire.Value itself can hold.
func parseValue(typ, raw string) (wire.Value, error) {
	switch typ {
	case "string":
		return wire.String(raw), nil
	case "blob":
		return wire.Blob([]byte(raw)), nil
	case "integer":
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		return wire.Integer(n), nil
	case "real":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid real %q: %w", raw, err)
		}
		return wire.Real(f), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		return wire.Bool(b), nil
	case "null":
		return wire.Null, nil
	default:
		return wire.Value{}, fmt.Errorf("unknown type %q: must be string, blob, integer, real, bool, or null", typ)
	}
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to confd's property store file")
	fs.Parse(args)

	if *dbPath == "" {
		return fmt.Errorf("delete requires -db")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("delete requires exactly one key argument")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Delete(fs.Arg(0)); err != nil {
		return fmt.Errorf("delete %s: %w", fs.Arg(0), err)
	}
	return nil
}

func runDeletePrefix(args []string) error {
	fs := flag.NewFlagSet("deletePrefix", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to confd's property store file")
	fs.Parse(args)

	if *dbPath == "" {
		return fmt.Errorf("deletePrefix requires -db")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("deletePrefix requires exactly one prefix argument")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	n, err := st.DeletePrefix(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("deletePrefix %s: %w", fs.Arg(0), err)
	}
	fmt.Printf("deleted %d properties\n", n)
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to confd's property store file")
	fs.Parse(args)

	if *dbPath == "" {
		return fmt.Errorf("dump requires -db")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	entries, err := st.All()
	if err != nil {
		return fmt.Errorf("list properties: %w", err)
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.Key, e.Value.Kind, e.Value.String())
	}
	return nil
}
