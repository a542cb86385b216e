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
	"sync"
	"time"

	"github.com/gogo/protobuf/proto"
	"go.uber.org/atomic"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
	"go.uber.org/rpcclient/rpcerrors"
)

// Call is a streaming call. The Client that built it keeps no track of it;
// the caller drives it until the stream ends. A Call never closes the
// transport client it is bound to.
//
// The context the Call was built with governs the whole stream: the
// stream is opened on it, cancelling it aborts the stream, and every Recv
// waits on it.
//
// Send, Recv and End may be called from different goroutines, but not
// concurrently with themselves.
type Call struct {
	client      transport.Client
	ctx         context.Context // stream lifetime
	hostname    string
	procedure   string
	decode      protobuf.DecodeFunc
	parser      protobuf.Parser
	builder     requestBuilder
	headers     transport.Headers
	recvTimeout time.Duration

	mu       sync.Mutex // guards the fields below and serializes writes
	streamID transport.StreamID
	sent     bool
}

// Procedure returns the procedure the call was opened for.
func (c *Call) Procedure() string { return c.procedure }

// StreamID returns the stream the call was opened on, or
// transport.InvalidStreamID before the first Send.
func (c *Call) StreamID() transport.StreamID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamID
}

// Send writes a message. The first Send opens the stream.
func (c *Call) Send(message proto.Message) error {
	return c.send(message, false)
}

func (c *Call) send(message proto.Message, end bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(message, end)
}

func (c *Call) sendLocked(message proto.Message, end bool) error {
	if c.streamID == transport.InvalidStreamID {
		req, err := c.builder.build(c.procedure, message, c.headers)
		if err != nil {
			return err
		}
		id := c.client.OpenStream(c.ctx, req, end)
		if id == transport.InvalidStreamID {
			return newStreamSendError(c.hostname, c.procedure, c.client.ErrCode())
		}
		c.streamID = id
		return nil
	}

	body, err := protobuf.Marshal(message)
	if err != nil {
		return err
	}
	if !c.client.Write(c.streamID, body, end) {
		return newStreamSendError(c.hostname, c.procedure, c.client.ErrCode())
	}
	return nil
}

// Recv reads the next message. The status is OK for every message; once the
// server finishes the stream Recv returns io.EOF for a clean end, or a
// types.StringValue reply with the failing status.
func (c *Call) Recv() (proto.Message, rpcerrors.Code, error) {
	res, code, err := c.recv()
	if err != nil {
		return nil, code, err
	}
	return c.parser.ParseResponse(res, c.decode)
}

// recv reads the next raw response. An error means nothing was read off the
// stream.
func (c *Call) recv() (*transport.Response, rpcerrors.Code, error) {
	id := c.StreamID()
	if id == transport.InvalidStreamID {
		return nil, rpcerrors.CodeInternal, ErrStreamNotOpen
	}

	ctx := c.ctx
	if c.recvTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.recvTimeout)
		defer cancel()
	}

	res, err := c.client.Recv(ctx, id)
	if err != nil {
		err = newRecvError(c.hostname, c.procedure, err)
		return nil, errorCode(err), err
	}
	return res, rpcerrors.CodeOK, nil
}

// End half-closes the stream: the server sees no further messages.
func (c *Call) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamID == transport.InvalidStreamID {
		return ErrStreamNotOpen
	}
	if !c.client.Write(c.streamID, nil, true) {
		return newStreamSendError(c.hostname, c.procedure, c.client.ErrCode())
	}
	return nil
}

// ClientStreamingCall sends any number of messages and receives a single
// reply.
type ClientStreamingCall struct {
	*Call

	received atomic.Bool
}

// Recv reads the reply. Once a reply has been read, further calls fail with
// ErrRecvOnce; a Recv that read nothing, such as one that timed out, may be
// repeated. Call End first so the server knows no more messages follow.
func (c *ClientStreamingCall) Recv() (proto.Message, rpcerrors.Code, error) {
	if c.received.Load() {
		return nil, rpcerrors.CodeFailedPrecondition, ErrRecvOnce
	}
	res, code, err := c.recv()
	if err != nil {
		return nil, code, err
	}
	c.received.Store(true)
	return c.parser.ParseResponse(res, c.decode)
}

// ServerStreamingCall sends a single message and receives any number of
// replies.
type ServerStreamingCall struct {
	*Call
}

// Send writes the request and half-closes the stream. Once a request has
// been sent, further calls fail with ErrSendOnce; a failed Send may be
// repeated.
func (c *ServerStreamingCall) Send(message proto.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSendOnce
	}
	if err := c.sendLocked(message, true); err != nil {
		return err
	}
	c.sent = true
	return nil
}

// BidiStreamingCall interleaves sends and receives freely.
type BidiStreamingCall struct {
	*Call
}

// ClientStreamRequest builds a client-streaming call of method. Replies are
// decoded with decode, or with the decoder resolved from the service
// interface when decode is nil. ctx bounds the lifetime of the stream.
func (c *Client) ClientStreamRequest(ctx context.Context, method string, decode protobuf.DecodeFunc, opts ...CallOption) (*ClientStreamingCall, error) {
	call, err := c.newCall(ctx, method, decode, opts)
	if err != nil {
		return nil, err
	}
	return &ClientStreamingCall{Call: call}, nil
}

// ServerStreamRequest builds a server-streaming call of method.
func (c *Client) ServerStreamRequest(ctx context.Context, method string, decode protobuf.DecodeFunc, opts ...CallOption) (*ServerStreamingCall, error) {
	call, err := c.newCall(ctx, method, decode, opts)
	if err != nil {
		return nil, err
	}
	return &ServerStreamingCall{Call: call}, nil
}

// BidiRequest builds a bidirectional-streaming call of method.
func (c *Client) BidiRequest(ctx context.Context, method string, decode protobuf.DecodeFunc, opts ...CallOption) (*BidiStreamingCall, error) {
	call, err := c.newCall(ctx, method, decode, opts)
	if err != nil {
		return nil, err
	}
	return &BidiStreamingCall{Call: call}, nil
}

func (c *Client) newCall(ctx context.Context, method string, decode protobuf.DecodeFunc, opts []CallOption) (*Call, error) {
	options := newCallOptions(opts)
	if decode != nil {
		options.decode = decode
	}
	decode, err := c.responseDecoder(method, options)
	if err != nil {
		return nil, err
	}

	tc, err := c.ensureInitialized()
	if err != nil {
		return nil, err
	}

	recvTimeout := c.cfg.RecvTimeout
	if options.recvTimeout > 0 {
		recvTimeout = options.recvTimeout
	}
	return &Call{
		client:      tc,
		ctx:         ctx,
		hostname:    c.hostname,
		procedure:   c.procedure(method),
		decode:      decode,
		parser:      c.parser,
		builder:     c.builder,
		headers:     c.callHeaders(options.headers),
		recvTimeout: recvTimeout,
	}, nil
}
