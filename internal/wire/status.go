// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"
)

// Status is confd's error taxonomy (spec.md §7), encoded as a single
// byte so it travels on the wire inside a reply payload without its
// own framing.
type Status uint8

const (
	// StatusSuccess means the operation completed as requested.
	StatusSuccess Status = 0
	// StatusTypeMismatch means a typed reader asked for a type that
	// does not match the property's stored type.
	StatusTypeMismatch Status = 1
	// StatusTypeChangeDenied means a write tried to change a non-null
	// property to a different non-null type.
	StatusTypeChangeDenied Status = 2
	// StatusAccessDenied means no access rule permits this caller on
	// this key.
	StatusAccessDenied Status = 3
	// StatusNotFound means the key does not exist.
	StatusNotFound Status = 4
	// StatusNullValue means the property exists with type null.
	StatusNullValue Status = 5
	// StatusNotSupported means the request named an endpoint this
	// server does not serve.
	StatusNotSupported Status = 6
	// StatusMalformedRequest means the decoder rejected the payload or
	// a required field was missing.
	StatusMalformedRequest Status = 7
	// StatusStoreError means a transient or fatal backing-store
	// failure occurred; the caller may retry.
	StatusStoreError Status = 8
	// StatusInvalidArguments means the caller passed a null key or a
	// zero-length buffer where one is required.
	StatusInvalidArguments Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusTypeMismatch:
		return "TypeMismatch"
	case StatusTypeChangeDenied:
		return "TypeChangeDenied"
	case StatusAccessDenied:
		return "AccessDenied"
	case StatusNotFound:
		return "NotFound"
	case StatusNullValue:
		return "NullValue"
	case StatusNotSupported:
		return "NotSupported"
	case StatusMalformedRequest:
		return "MalformedRequest"
	case StatusStoreError:
		return "StoreError"
	case StatusInvalidArguments:
		return "InvalidArguments"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// StatusErr wraps an underlying error with the Status it maps to at
// the RPC boundary. Components return plain errors; handlers recover
// the wire status with errors.As(err, &StatusErr{}) instead of string
// matching, the same pattern the teacher's lib/github package uses
// for its APIError/IsNotFound family.
type StatusErr struct {
	Status Status
	Err    error
}

// NewStatusErr wraps err with the given status. A nil err is allowed;
// callers that only care about conveying a status without extra
// context commonly pass nil.
func NewStatusErr(status Status, err error) *StatusErr {
	return &StatusErr{Status: status, Err: err}
}

func (e *StatusErr) Error() string {
	if e.Err == nil {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %v", e.Status, e.Err)
}

func (e *StatusErr) Unwrap() error { return e.Err }

// StatusOf extracts the Status carried by err, if any, defaulting to
// StatusStoreError for an unrecognized error so a bug in a lower layer
// degrades to "retry later" rather than a silent success report.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var statusErr *StatusErr
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return StatusStoreError
}
