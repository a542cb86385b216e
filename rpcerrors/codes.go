// Copyright (c) 2024 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package rpcerrors defines the status codes carried by RPC responses and
// client errors.
//
// The numbering matches gRPC status codes so that a code read from a
// grpc-status header can be converted directly.
package rpcerrors

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is the outcome of an RPC as reported by the server, or the category
// of a client-side failure.
type Code int

const (
	// CodeOK means no error.
	CodeOK Code = 0
	// CodeCancelled means the operation was cancelled, typically by the caller.
	CodeCancelled Code = 1
	// CodeUnknown means an error that carried no further information.
	CodeUnknown Code = 2
	// CodeInvalidArgument means the client specified an invalid argument.
	CodeInvalidArgument Code = 3
	// CodeDeadlineExceeded means the deadline expired before the operation
	// could complete.
	CodeDeadlineExceeded Code = 4
	// CodeNotFound means a requested entity was not found.
	CodeNotFound Code = 5
	// CodeAlreadyExists means the entity already exists.
	CodeAlreadyExists Code = 6
	// CodePermissionDenied means the caller may not execute the operation.
	CodePermissionDenied Code = 7
	// CodeResourceExhausted means some resource has been exhausted.
	CodeResourceExhausted Code = 8
	// CodeFailedPrecondition means the system is not in a state required for
	// the operation.
	CodeFailedPrecondition Code = 9
	// CodeAborted means the operation was aborted.
	CodeAborted Code = 10
	// CodeOutOfRange means the operation was attempted past the valid range.
	CodeOutOfRange Code = 11
	// CodeUnimplemented means the operation is not implemented by the service.
	CodeUnimplemented Code = 12
	// CodeInternal means an invariant expected by the underlying system has
	// been broken.
	CodeInternal Code = 13
	// CodeUnavailable means the service is currently unavailable.
	CodeUnavailable Code = 14
	// CodeDataLoss means unrecoverable data loss or corruption.
	CodeDataLoss Code = 15
	// CodeUnauthenticated means the request does not have valid
	// authentication credentials.
	CodeUnauthenticated Code = 16
)

var (
	_codeToString = map[Code]string{
		CodeOK:                 "ok",
		CodeCancelled:          "cancelled",
		CodeUnknown:            "unknown",
		CodeInvalidArgument:    "invalid-argument",
		CodeDeadlineExceeded:   "deadline-exceeded",
		CodeNotFound:           "not-found",
		CodeAlreadyExists:      "already-exists",
		CodePermissionDenied:   "permission-denied",
		CodeResourceExhausted:  "resource-exhausted",
		CodeFailedPrecondition: "failed-precondition",
		CodeAborted:            "aborted",
		CodeOutOfRange:         "out-of-range",
		CodeUnimplemented:      "unimplemented",
		CodeInternal:           "internal",
		CodeUnavailable:        "unavailable",
		CodeDataLoss:           "data-loss",
		CodeUnauthenticated:    "unauthenticated",
	}
	_stringToCode = make(map[string]Code, len(_codeToString))
)

func init() {
	for code, s := range _codeToString {
		_stringToCode[s] = code
	}
}

// String returns the name of the code, or its number if the code is not
// one of the known codes.
func (c Code) String() string {
	if s, ok := _codeToString[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	if s, ok := _codeToString[c]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
// Both code names ("internal") and code numbers ("13") are accepted.
func (c *Code) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if code, ok := _stringToCode[s]; ok {
		*c = code
		return nil
	}
	code, err := Parse(s)
	if err != nil {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = code
	return nil
}

// Parse reads a numeric code as found in a grpc-status header. An empty
// value is CodeOK.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CodeOK, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return CodeUnknown, fmt.Errorf("invalid status code %q: %v", s, err)
	}
	return Code(i), nil
}
