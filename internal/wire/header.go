// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderLength is the fixed size, in bytes, of a request or reply
// header. Every packet on the wire begins with exactly this many
// bytes before the payload.
const HeaderLength = 8

// ProtocolVersion is the only version this daemon speaks. A receiver
// that reads a different version must discard the packet and close
// the connection (spec: a framing violation, not a per-request error).
const ProtocolVersion uint16 = 0x0100

// MaxMessageLength bounds the total size (header + payload) of a
// single message, guarding the per-connection read buffer against a
// peer that declares an enormous length and never sends that much
// data.
const MaxMessageLength = 1 << 20 // 1 MiB

// Endpoint identifies which operation a request header names.
type Endpoint uint8

const (
	// EndpointQuery reads a property. See payload.go for the request
	// and reply shapes.
	EndpointQuery Endpoint = 0x01
	// EndpointUpdate inserts or updates a property.
	EndpointUpdate Endpoint = 0x02
)

// Flags are the bits carried in a header's flags byte.
type Flags uint8

const (
	// FlagReply is set on every reply header; clear on every request.
	FlagReply Flags = 1 << 0
	// FlagBroadcast is reserved for future use; the receiver must
	// ignore it, never reject a packet because it is set.
	FlagBroadcast Flags = 1 << 1
)

// Header is the fixed 8-byte frame header shared by requests and
// replies. Field order and widths match the wire layout exactly;
// Header is encoded and decoded by explicit byte-slice manipulation
// rather than unsafe struct casting, since confd is not guaranteed to
// run on the same architecture that produced the on-disk/on-wire
// layout in the original implementation.
type Header struct {
	Version  uint16
	Length   uint16
	Endpoint Endpoint
	Tag      uint8
	Flags    Flags
	Reserved uint8
}

// IsReply reports whether the reply flag is set.
func (h Header) IsReply() bool { return h.Flags&FlagReply != 0 }

// PayloadLength returns the number of payload bytes this header
// declares, i.e. Length minus the header itself. Callers must check
// Validate first; PayloadLength underflows if Length < HeaderLength.
func (h Header) PayloadLength() int { return int(h.Length) - HeaderLength }

// Validate checks the two conditions the spec requires a receiver to
// enforce before trusting a header: the protocol version must match,
// and the declared length must be at least the header size.
func (h Header) Validate() error {
	if h.Version != ProtocolVersion {
		return fmt.Errorf("wire: unsupported protocol version %#04x", h.Version)
	}
	if int(h.Length) < HeaderLength {
		return fmt.Errorf("wire: header length %d shorter than header itself", h.Length)
	}
	if int(h.Length) > MaxMessageLength {
		return fmt.Errorf("wire: header length %d exceeds maximum %d", h.Length, MaxMessageLength)
	}
	return nil
}

// Encode writes the header's wire representation into buf, which must
// be at least HeaderLength bytes long.
func (h Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], h.Version)
	binary.LittleEndian.PutUint16(buf[2:4], h.Length)
	buf[4] = byte(h.Endpoint)
	buf[5] = h.Tag
	buf[6] = byte(h.Flags)
	buf[7] = h.Reserved
}

// DecodeHeader parses a header from the first HeaderLength bytes of
// buf. It does not call Validate; callers decide when to validate
// versus when to fail fast on a version mismatch.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLength {
		return Header{}, fmt.Errorf("wire: short buffer (%d bytes, need %d)", len(buf), HeaderLength)
	}
	return Header{
		Version:  binary.LittleEndian.Uint16(buf[0:2]),
		Length:   binary.LittleEndian.Uint16(buf[2:4]),
		Endpoint: Endpoint(buf[4]),
		Tag:      buf[5],
		Flags:    Flags(buf[6]),
		Reserved: buf[7],
	}, nil
}

// ReadMessage reads one complete framed message from r: the header,
// then exactly the payload bytes it declares. It accumulates across
// short reads (the original implementation's biggest bug, called out
// explicitly in the design notes) by relying on io.ReadFull for both
// the header and the payload.
func ReadMessage(r io.Reader) (Header, []byte, error) {
	var headerBuf [HeaderLength]byte
	if _, err := io.ReadFull(r, headerBuf[:]); err != nil {
		return Header{}, nil, fmt.Errorf("wire: read header: %w", err)
	}

	header, err := DecodeHeader(headerBuf[:])
	if err != nil {
		return Header{}, nil, err
	}
	if err := header.Validate(); err != nil {
		return Header{}, nil, err
	}

	payload := make([]byte, header.PayloadLength())
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Header{}, nil, fmt.Errorf("wire: read payload: %w", err)
		}
	}
	return header, payload, nil
}

// WriteMessage writes a header followed by payload as a single frame.
// Length is computed and filled in automatically; the caller supplies
// everything else. WriteMessage retries on partial writes so a slow
// peer's socket buffer never produces a truncated frame.
func WriteMessage(w io.Writer, header Header, payload []byte) error {
	header.Length = uint16(HeaderLength + len(payload))

	buf := make([]byte, HeaderLength+len(payload))
	header.Encode(buf[:HeaderLength])
	copy(buf[HeaderLength:], payload)

	for written := 0; written < len(buf); {
		n, err := w.Write(buf[written:])
		if err != nil {
			return fmt.Errorf("wire: write message: %w", err)
		}
		written += n
	}
	return nil
}
