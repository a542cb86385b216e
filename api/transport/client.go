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

package transport

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Headers carrying the RPC status of a response.
const (
	StatusHeader  = "grpc-status"
	MessageHeader = "grpc-message"
)

// StreamID correlates a sent request with the responses that belong to it.
type StreamID uint32

// InvalidStreamID is returned by Client.Send and Client.OpenStream when the
// request could not be written.
const InvalidStreamID StreamID = 0

// Client owns one connection to a remote host and multiplexes requests over
// it.
//
// A Client must be started before use and closed exactly once.
type Client interface {
	// Start connects to the host. It reports true if the client is running
	// afterwards.
	Start() bool

	// IsRunning reports whether the connection is usable.
	IsRunning() bool

	// ErrCode returns the native error code of the most recent failure.
	ErrCode() int

	// Send writes a unary request and returns the stream carrying its
	// response, or InvalidStreamID on failure.
	Send(ctx context.Context, req *Request) StreamID

	// Recv blocks until the next message of the stream arrives, or until
	// ctx is done.
	Recv(ctx context.Context, id StreamID) (*Response, error)

	// OpenStream opens a streaming call. If end is set, the request body is
	// the only message the client will send.
	OpenStream(ctx context.Context, req *Request, end bool) StreamID

	// Write sends one more message on an open stream, half-closing it if end
	// is set.
	Write(id StreamID, body []byte, end bool) bool

	// StreamExists reports whether the stream is still open.
	StreamExists(id StreamID) bool

	// Close shuts the connection down. With drain set, it waits for
	// in-flight streams to finish first.
	Close(drain bool) bool
}

// Options configures Clients built by a Factory.
type Options struct {
	// DialTimeout bounds how long Start waits for the connection.
	DialTimeout time.Duration

	// Logger receives transport logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Factory builds Clients bound to a host.
type Factory interface {
	NewClient(hostname string, opts Options) (Client, error)
}

// FactoryFunc adapts a function into a Factory.
type FactoryFunc func(hostname string, opts Options) (Client, error)

// NewClient calls f.
func (f FactoryFunc) NewClient(hostname string, opts Options) (Client, error) {
	return f(hostname, opts)
}
