// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:  ProtocolVersion,
		Length:   HeaderLength + 3,
		Endpoint: EndpointUpdate,
		Tag:      42,
		Flags:    FlagReply,
		Reserved: 0,
	}

	buf := make([]byte, HeaderLength)
	h.Encode(buf)

	decoded, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if decoded != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestHeaderValidateRejectsBadVersion(t *testing.T) {
	h := Header{Version: 0x0200, Length: HeaderLength}
	if err := h.Validate(); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestHeaderValidateRejectsShortLength(t *testing.T) {
	h := Header{Version: ProtocolVersion, Length: HeaderLength - 1}
	if err := h.Validate(); err == nil {
		t.Fatal("expected error for length shorter than header")
	}
}

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Header{Version: ProtocolVersion, Endpoint: EndpointQuery, Tag: 7}
	payload := []byte("hello")

	if err := WriteMessage(&buf, req, payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	gotHeader, gotPayload, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if gotHeader.Endpoint != EndpointQuery || gotHeader.Tag != 7 {
		t.Errorf("header mismatch: %+v", gotHeader)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload mismatch: got %q, want %q", gotPayload, payload)
	}
}

func TestReadMessageRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Version: 0x0200, Endpoint: EndpointQuery}
	if err := WriteMessage(&buf, h, nil); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if _, _, err := ReadMessage(&buf); err == nil {
		t.Fatal("expected error for bad version")
	}
}

func TestEncodeDecodeQueryRequest(t *testing.T) {
	payload, err := encMode.Marshal(map[string]any{"key": "sys.boot.count", "forceFloat": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	key, forceFloat, err := DecodeQueryRequest(payload)
	if err != nil {
		t.Fatalf("DecodeQueryRequest: %v", err)
	}
	if key != "sys.boot.count" || !forceFloat {
		t.Errorf("got key=%q forceFloat=%v", key, forceFloat)
	}
}

func TestEncodeDecodeQueryRequestMissingKey(t *testing.T) {
	payload, err := encMode.Marshal(map[string]any{"forceFloat": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, _, err := DecodeQueryRequest(payload); StatusOf(err) != StatusMalformedRequest {
		t.Fatalf("expected MalformedRequest, got %v", err)
	}
}

func TestEncodeDecodeUpdateRequestInteger(t *testing.T) {
	payload, err := encMode.Marshal(map[string]any{"key": "sys.boot.count", "value": uint64(42)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	key, value, err := DecodeUpdateRequest(payload)
	if err != nil {
		t.Fatalf("DecodeUpdateRequest: %v", err)
	}
	if key != "sys.boot.count" || value.Kind != KindInteger || value.Uint64() != 42 {
		t.Errorf("got key=%q value=%+v", key, value)
	}
}

func TestEncodeDecodeUpdateRequestNull(t *testing.T) {
	payload, err := encMode.Marshal(map[string]any{"key": "new.k", "value": nil})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	_, value, err := DecodeUpdateRequest(payload)
	if err != nil {
		t.Fatalf("DecodeUpdateRequest: %v", err)
	}
	if !value.IsNull() {
		t.Errorf("expected null value, got %+v", value)
	}
}

func TestEncodeQueryReplyRoundTrip(t *testing.T) {
	payload, err := EncodeQueryReply("net.hostname", StatusSuccess, String("gateway"), false)
	if err != nil {
		t.Fatalf("EncodeQueryReply: %v", err)
	}

	key, found, status, value, valuePresent, err := DecodeReply(payload, "found")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if key != "net.hostname" || !found || status != StatusSuccess || !valuePresent || value.Str() != "gateway" {
		t.Errorf("got key=%q found=%v status=%v value=%+v present=%v", key, found, status, value, valuePresent)
	}
}

func TestEncodeQueryReplyNotFoundOmitsValue(t *testing.T) {
	payload, err := EncodeQueryReply("missing.key", StatusNotFound, Value{}, false)
	if err != nil {
		t.Fatalf("EncodeQueryReply: %v", err)
	}

	_, found, status, _, valuePresent, err := DecodeReply(payload, "found")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if found || valuePresent || status != StatusNotFound {
		t.Errorf("expected found=false, valuePresent=false, status=NotFound; got found=%v valuePresent=%v status=%v", found, valuePresent, status)
	}
}

func TestEncodeQueryReplyFoundNullOmitsValue(t *testing.T) {
	payload, err := EncodeQueryReply("new.k", StatusSuccess, Null, false)
	if err != nil {
		t.Fatalf("EncodeQueryReply: %v", err)
	}

	_, found, status, _, valuePresent, err := DecodeReply(payload, "found")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if !found || valuePresent || status != StatusSuccess {
		t.Errorf("expected found=true, valuePresent=false, status=Success; got found=%v valuePresent=%v status=%v", found, valuePresent, status)
	}
}

func TestEncodeQueryReplyForceFloat(t *testing.T) {
	payload, err := EncodeQueryReply("sensor.temp", StatusSuccess, Real(21.5), true)
	if err != nil {
		t.Fatalf("EncodeQueryReply: %v", err)
	}

	_, _, _, value, _, err := DecodeReply(payload, "found")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if value.Kind != KindReal || value.Float64() != 21.5 {
		t.Errorf("got value=%+v", value)
	}
}

func TestEncodeUpdateReplyRoundTrip(t *testing.T) {
	payload, err := EncodeUpdateReply("sys.boot.count", StatusSuccess)
	if err != nil {
		t.Fatalf("EncodeUpdateReply: %v", err)
	}

	key, updated, status, _, _, err := DecodeReply(payload, "updated")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if key != "sys.boot.count" || !updated || status != StatusSuccess {
		t.Errorf("got key=%q updated=%v status=%v", key, updated, status)
	}
}

func TestEncodeUpdateReplyTypeChangeDenied(t *testing.T) {
	payload, err := EncodeUpdateReply("k", StatusTypeChangeDenied)
	if err != nil {
		t.Fatalf("EncodeUpdateReply: %v", err)
	}

	_, updated, status, _, _, err := DecodeReply(payload, "updated")
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if updated || status != StatusTypeChangeDenied {
		t.Errorf("got updated=%v status=%v", updated, status)
	}
}
