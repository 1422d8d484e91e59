// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Kind discriminates the arms of Value. It doubles as the on-disk
// type tag for a property (internal/store persists Kind directly), so
// its numeric values must never be renumbered once shipped.
type Kind uint8

const (
	// KindAbsent is the in-memory sentinel for "no such property". It
	// is never persisted and never appears on the wire.
	KindAbsent Kind = 0
	// KindNull means the property exists but holds no value.
	KindNull Kind = 1
	// KindString is a UTF-8 string.
	KindString Kind = 2
	// KindBlob is an opaque byte sequence.
	KindBlob Kind = 3
	// KindInteger is an unsigned 64-bit integer (booleans are stored
	// as 0/1 integers; see Bool).
	KindInteger Kind = 4
	// KindReal is a 64-bit IEEE-754 float.
	KindReal Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is confd's tagged-union property value. Exactly one of the
// typed fields is meaningful, selected by Kind; this keeps
// serialization at the boundary (payload.go, internal/store's row
// mapping) instead of smeared across call sites, per the "sum-typed
// values" design note: a tagged variant, not an inheritance tree.
type Value struct {
	Kind Kind

	str     string
	blob    []byte
	integer uint64
	real    float64
}

// Absent is the sentinel returned by lookups that miss. It is distinct
// from Null: Absent means the key does not exist at all.
var Absent = Value{Kind: KindAbsent}

// Null is the value of a property whose type tag is null.
var Null = Value{Kind: KindNull}

// String builds a string-typed value.
func String(s string) Value { return Value{Kind: KindString, str: s} }

// Blob builds a blob-typed value. The caller's slice is retained, not
// copied; callers that mutate it afterward get undefined behavior,
// matching the rest of this package's zero-copy payload handling.
func Blob(b []byte) Value { return Value{Kind: KindBlob, blob: b} }

// Integer builds an integer-typed value.
func Integer(v uint64) Value { return Value{Kind: KindInteger, integer: v} }

// Real builds a real-typed (floating point) value.
func Real(v float64) Value { return Value{Kind: KindReal, real: v} }

// Bool builds an integer-typed value from a boolean, per the spec's
// rule that booleans are stored as integers 0 or 1 but declare type
// Integer. The wire layer is free to present an integer back as a
// bool on decode (see payload.go), but the stored Kind is always
// KindInteger.
func Bool(b bool) Value {
	if b {
		return Integer(1)
	}
	return Integer(0)
}

// IsAbsent reports whether v is the "no such property" sentinel.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// IsNull reports whether v is a stored null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Str returns the string payload. Only meaningful when Kind == KindString.
func (v Value) Str() string { return v.str }

// BlobBytes returns the blob payload. Only meaningful when Kind == KindBlob.
func (v Value) BlobBytes() []byte { return v.blob }

// Uint64 returns the integer payload. Only meaningful when Kind == KindInteger.
func (v Value) Uint64() uint64 { return v.integer }

// Float64 returns the real payload. Only meaningful when Kind == KindReal.
func (v Value) Float64() float64 { return v.real }

// AsBool interprets an integer value as a boolean: zero is false,
// anything else is true. Panics if Kind is not KindInteger; callers
// must check Kind first (mirrors spec.md §4.2's "reader accepts both
// boolean and numeric-zero-vs-nonzero when a boolean is requested").
func (v Value) AsBool() bool {
	if v.Kind != KindInteger {
		panic(fmt.Sprintf("wire: AsBool on non-integer value (%s)", v.Kind))
	}
	return v.integer != 0
}

// SameType reports whether v and other carry the same Kind. Null is
// deliberately compared structurally: SameType(Null, Null) is true,
// but Null never equals a typed value even if empty.
func (v Value) SameType(other Value) bool { return v.Kind == other.Kind }

func (v Value) String() string {
	switch v.Kind {
	case KindAbsent:
		return "<absent>"
	case KindNull:
		return "<null>"
	case KindString:
		return v.str
	case KindBlob:
		return fmt.Sprintf("<blob:%d bytes>", len(v.blob))
	case KindInteger:
		return fmt.Sprintf("%d", v.integer)
	case KindReal:
		return fmt.Sprintf("%g", v.real)
	default:
		return "<invalid>"
	}
}
