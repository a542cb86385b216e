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

package rpcclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	"go.uber.org/multierr"
	"go.uber.org/rpcclient/rpcerrors"
)

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("rpcclient: client is closed")

	// ErrRecvOnce is returned by a second Recv on a client-streaming call.
	ErrRecvOnce = errors.New("rpcclient: a client-streaming call can only receive once")

	// ErrSendOnce is returned by a second Send on a server-streaming call.
	ErrSendOnce = errors.New("rpcclient: a server-streaming call can only send once")

	// ErrStreamNotOpen is returned when a streaming call receives or ends
	// before its first Send.
	ErrStreamNotOpen = errors.New("rpcclient: stream is not open, send a message first")
)

// ConfigError reports invalid configuration. It is raised before any
// network activity.
type ConfigError struct {
	err error
}

func (e *ConfigError) Error() string {
	return "rpcclient: invalid configuration: " + e.err.Error()
}

// Unwrap returns the underlying problems.
func (e *ConfigError) Unwrap() error { return e.err }

// Errors lists every problem found.
func (e *ConfigError) Errors() []error { return multierr.Errors(e.err) }

func newOverrideError(v interface{}) error {
	return fmt.Errorf("client must implement transport.Client, got %T", v)
}

// ClientError reports a failure of the transport: it could not be built or
// started, a request could not be sent, or no response arrived.
type ClientError struct {
	Code       rpcerrors.Code
	Hostname   string
	NativeCode int
	Message    string

	cause     error
	transient bool
}

func (e *ClientError) Error() string {
	msg := fmt.Sprintf("rpcclient: %s (host %q, code %v, native code %d)", e.Message, e.Hostname, e.Code, e.NativeCode)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the error that caused the failure, if known.
func (e *ClientError) Unwrap() error { return e.cause }

// newStartError reports a transport client that did not start. It is
// transient while reconnecting after a failed send, so the send is retried.
func newStartError(hostname string, nativeCode int, transient bool) *ClientError {
	return &ClientError{
		Code:       rpcerrors.CodeInternal,
		Hostname:   hostname,
		NativeCode: nativeCode,
		Message:    "failed to start the transport client",
		transient:  transient,
	}
}

func newFactoryError(hostname string, err error) *ClientError {
	return &ClientError{
		Code:     rpcerrors.CodeInternal,
		Hostname: hostname,
		Message:  "failed to build the transport client",
		cause:    err,
	}
}

func newSendExhaustedError(hostname string, attempts int, failure *sendFailure) *ClientError {
	return &ClientError{
		Code:       rpcerrors.CodeInternal,
		Hostname:   hostname,
		NativeCode: failure.nativeCode,
		Message:    fmt.Sprintf("failed to send the request after %d attempts", attempts),
		cause:      failure,
	}
}

func newStreamSendError(hostname string, procedure string, nativeCode int) *ClientError {
	return &ClientError{
		Code:       rpcerrors.CodeInternal,
		Hostname:   hostname,
		NativeCode: nativeCode,
		Message:    fmt.Sprintf("failed to send the stream of %s", procedure),
	}
}

func newRecvError(hostname string, procedure string, err error) *ClientError {
	code := rpcerrors.CodeInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = rpcerrors.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = rpcerrors.CodeCancelled
	}
	return &ClientError{
		Code:     code,
		Hostname: hostname,
		Message:  fmt.Sprintf("failed to receive the response of %s", procedure),
		cause:    err,
	}
}

// sendFailure marks an attempt whose request the transport did not accept.
// It is retried and surfaces as a ClientError once attempts run out.
type sendFailure struct {
	procedure  string
	nativeCode int
}

func (e *sendFailure) Error() string {
	return fmt.Sprintf("failed to send the request to %s, native code %d", e.procedure, e.nativeCode)
}

// RequestError reports a response carrying a non-OK status.
type RequestError struct {
	Procedure string
	Reply     proto.Message
	Code      rpcerrors.Code
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("rpcclient: %s returned %v: %s", e.Procedure, e.Code, replyText(e.Reply))
}

func newRequestError(procedure string, reply proto.Message, code rpcerrors.Code) *RequestError {
	return &RequestError{Procedure: procedure, Reply: reply, Code: code}
}

func replyText(reply proto.Message) string {
	switch r := reply.(type) {
	case nil:
		return ""
	case *types.StringValue:
		return r.Value
	default:
		return proto.CompactTextString(reply)
	}
}

// isRetryable selects the attempt failures worth another attempt: requests
// the transport did not accept, and transports that failed to restart after
// such a request.
func isRetryable(err error) bool {
	var sf *sendFailure
	if errors.As(err, &sf) {
		return true
	}
	var ce *ClientError
	return errors.As(err, &ce) && ce.transient
}

// errorCode extracts the status code carried by err.
func errorCode(err error) rpcerrors.Code {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return rpcerrors.CodeUnknown
}
