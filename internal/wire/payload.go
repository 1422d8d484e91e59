// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode and decMode are configured once and reused, the same way
// the teacher's lib/codec package configures a package-level
// cbor.EncMode/DecMode rather than building options on every call.
//
// Unlike lib/codec's CoreDetEncOptions (which shrinks floats to the
// shortest width that round-trips, in service of byte-for-byte
// determinism), confd's wire format gives float precision an explicit
// meaning: 64-bit unless the request's forceFloat flag asked for
// 32-bit. ShortestFloat is left at its zero value (ShortestFloatNone)
// so a Go float64 always encodes as a CBOR 8-byte float and a Go
// float32 always encodes as a 4-byte float — the caller chooses the
// wire width by choosing the Go type before marshaling, not the
// library.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic("wire: cbor encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Reject indefinite-length strings/bytestrings/maps/arrays
		// outright: spec.md §4.2 requires definite-length payloads
		// throughout and rejects indefinite strings as
		// MalformedRequest.
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("wire: cbor decoder initialization failed: " + err.Error())
	}
}

// decodeMap decodes a CBOR payload into a string-keyed map, the
// self-describing shape every confd request and reply uses. Decode
// failures are reported as MalformedRequest, not a bare error,
// because they cross the RPC boundary directly.
func decodeMap(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := decMode.Unmarshal(payload, &m); err != nil {
		return nil, NewStatusErr(StatusMalformedRequest, fmt.Errorf("decode payload: %w", err))
	}
	return m, nil
}

// fieldPresent reports whether key is present in m, distinguishing a
// present-but-null field from a genuinely absent one, per spec.md
// §4.2's "A missing optional field decodes to 'not present' and is
// never conflated with a present-but-null field."
func fieldPresent(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// decodeKey extracts and validates the required "key" field of a
// request. A request key must be non-empty — this is the rule
// spec.md's StatusInvalidArguments exists for.
func decodeKey(m map[string]any) (string, error) {
	key, err := decodeKeyField(m)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", NewStatusErr(StatusInvalidArguments, fmt.Errorf("empty key"))
	}
	return key, nil
}

// decodeKeyField extracts the "key" field without the non-empty
// check decodeKey applies. Replies legitimately carry an empty key:
// the server echoes "" when a request failed before a key could be
// recovered from it (a decode failure, an unsupported endpoint, and
// so on), and a reply decoder must still be able to read the status
// those replies carry.
func decodeKeyField(m map[string]any) (string, error) {
	raw, ok := fieldPresent(m, "key")
	if !ok {
		return "", NewStatusErr(StatusMalformedRequest, fmt.Errorf("missing required field %q", "key"))
	}
	key, ok := raw.(string)
	if !ok {
		return "", NewStatusErr(StatusMalformedRequest, fmt.Errorf("field %q: expected string, got %T", "key", raw))
	}
	return key, nil
}

// decodeValue extracts the "value" field as a wire.Value. present is
// false when the field was entirely absent from the payload; when
// present is true and the decoded CBOR item was null, the result is
// Null.
func decodeValue(m map[string]any) (value Value, present bool, err error) {
	raw, ok := fieldPresent(m, "value")
	if !ok {
		return Value{}, false, nil
	}
	if raw == nil {
		return Null, true, nil
	}

	switch v := raw.(type) {
	case string:
		return String(v), true, nil
	case []byte:
		return Blob(v), true, nil
	case bool:
		return Bool(v), true, nil
	case uint64:
		return Integer(v), true, nil
	case int64:
		if v < 0 {
			return Value{}, false, NewStatusErr(StatusMalformedRequest, fmt.Errorf("field %q: negative integers are not supported", "value"))
		}
		return Integer(uint64(v)), true, nil
	case float64:
		return Real(v), true, nil
	default:
		return Value{}, false, NewStatusErr(StatusMalformedRequest, fmt.Errorf("field %q: unsupported CBOR type %T", "value", raw))
	}
}

// decodeBool extracts an optional boolean field, defaulting to false
// when absent.
func decodeBool(m map[string]any, key string) (bool, error) {
	raw, ok := fieldPresent(m, key)
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, NewStatusErr(StatusMalformedRequest, fmt.Errorf("field %q: expected bool, got %T", key, raw))
	}
	return b, nil
}

// DecodeQueryRequest decodes a query endpoint request payload.
func DecodeQueryRequest(payload []byte) (key string, forceFloat bool, err error) {
	m, err := decodeMap(payload)
	if err != nil {
		return "", false, err
	}
	if key, err = decodeKey(m); err != nil {
		return "", false, err
	}
	forceFloat, err = decodeBool(m, "forceFloat")
	return key, forceFloat, err
}

// DecodeUpdateRequest decodes an update endpoint request payload. The
// "value" field is required for update, unlike query's optional flag.
func DecodeUpdateRequest(payload []byte) (key string, value Value, err error) {
	m, err := decodeMap(payload)
	if err != nil {
		return "", Value{}, err
	}
	if key, err = decodeKey(m); err != nil {
		return "", Value{}, err
	}
	v, present, err := decodeValue(m)
	if err != nil {
		return "", Value{}, err
	}
	if !present {
		return "", Value{}, NewStatusErr(StatusMalformedRequest, fmt.Errorf("missing required field %q", "value"))
	}
	return key, v, nil
}

// EncodeQueryRequest encodes a query endpoint request, the client-side
// counterpart of DecodeQueryRequest. cmd/confdctl and tests use this
// to build requests without reaching into the package's private CBOR
// configuration.
func EncodeQueryRequest(key string, forceFloat bool) ([]byte, error) {
	m := map[string]any{"key": key}
	if forceFloat {
		m["forceFloat"] = true
	}
	return encMode.Marshal(m)
}

// EncodeUpdateRequest encodes an update endpoint request, the
// client-side counterpart of DecodeUpdateRequest.
func EncodeUpdateRequest(key string, value Value) ([]byte, error) {
	encoded, err := cborValue(value, false)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(map[string]any{"key": key, "value": encoded})
}

// cborValue converts a wire.Value into the concrete Go type that
// produces the wire encoding the spec demands: float64 for 64-bit
// reals, float32 when forceFloat narrows a real reply, []byte for
// blobs, and so on. Returns nil for Null (which CBOR encodes as the
// null simple value) and must never be called with KindAbsent.
func cborValue(v Value, forceFloat bool) (any, error) {
	switch v.Kind {
	case KindNull:
		return nil, nil
	case KindString:
		return v.Str(), nil
	case KindBlob:
		return v.BlobBytes(), nil
	case KindInteger:
		return v.Uint64(), nil
	case KindReal:
		if forceFloat {
			return float32(v.Float64()), nil
		}
		return v.Float64(), nil
	default:
		return nil, fmt.Errorf("wire: cannot encode value of kind %s", v.Kind)
	}
}

// EncodeQueryReply encodes a reply to the query endpoint. status
// carries the full outcome (spec.md §7's taxonomy); found is the
// boolean convenience flag spec.md §6 names explicitly, true exactly
// when status is Success. A null property is still found: status is
// Success and found is true, but "value" is omitted entirely, per
// §4.3's reply table ("value iff found and not null") and scenario 3
// ("query yields found=true, no value"). StatusNullValue is never
// produced by query — it exists for a typed client library layered on
// top of this wire format, which needs to reject a null where it
// expects a scalar (see internal/rpcserver/dispatch.go).
func EncodeQueryReply(key string, status Status, value Value, forceFloat bool) ([]byte, error) {
	found := status == StatusSuccess
	m := map[string]any{
		"key":    key,
		"found":  found,
		"status": uint64(status),
	}
	if found && !value.IsAbsent() && !value.IsNull() {
		encoded, err := cborValue(value, forceFloat)
		if err != nil {
			return nil, err
		}
		m["value"] = encoded
	}
	return encMode.Marshal(m)
}

// EncodeUpdateReply encodes a reply to the update endpoint. The
// original value is never echoed back on a write, matching the
// daemon's ExcludeValue behavior for set requests. status carries the
// full outcome; updated is true exactly when status is Success.
func EncodeUpdateReply(key string, status Status) ([]byte, error) {
	m := map[string]any{
		"key":     key,
		"updated": status == StatusSuccess,
		"status":  uint64(status),
	}
	return encMode.Marshal(m)
}

// DecodeReply decodes a generic reply payload for either endpoint,
// used by client code and tests. statusFlagField names the boolean
// convenience flag ("found" or "updated"); the numeric status field is
// always named "status" regardless of endpoint.
func DecodeReply(payload []byte, statusFlagField string) (key string, statusFlag bool, status Status, value Value, valuePresent bool, err error) {
	m, err := decodeMap(payload)
	if err != nil {
		return "", false, 0, Value{}, false, err
	}
	if key, err = decodeKeyField(m); err != nil {
		return "", false, 0, Value{}, false, err
	}
	if statusFlag, err = decodeBool(m, statusFlagField); err != nil {
		return "", false, 0, Value{}, false, err
	}
	rawStatus, err := decodeStatus(m)
	if err != nil {
		return "", false, 0, Value{}, false, err
	}
	value, valuePresent, err = decodeValue(m)
	return key, statusFlag, rawStatus, value, valuePresent, err
}

// decodeStatus extracts the required "status" reply field.
func decodeStatus(m map[string]any) (Status, error) {
	raw, ok := fieldPresent(m, "status")
	if !ok {
		return 0, NewStatusErr(StatusMalformedRequest, fmt.Errorf("missing required field %q", "status"))
	}
	n, ok := raw.(uint64)
	if !ok {
		return 0, NewStatusErr(StatusMalformedRequest, fmt.Errorf("field %q: expected uint, got %T", "status", raw))
	}
	return Status(n), nil
}
