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

package grpc

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	_ transport.Client  = (*Client)(nil)
	_ transport.Factory = (*Factory)(nil)

	_streamDesc = &grpc.StreamDesc{ClientStreams: true, ServerStreams: true}
)

type clientState int

const (
	stateIdle clientState = iota
	stateRunning
	stateClosed
)

// Client is a transport.Client backed by a single gRPC connection.
//
// Stream ids are allocated by the client and shared by unary calls and
// streams. ErrCode reports the gRPC code of the most recent failure.
type Client struct {
	hostname    string
	dialTimeout time.Duration
	opts        clientOptions
	logger      *zap.Logger
	conn        *grpc.ClientConn

	lastID  atomic.Uint32
	errCode atomic.Int32

	mu      sync.Mutex
	state   clientState
	calls   map[transport.StreamID]*unaryCall
	streams map[transport.StreamID]*clientStream

	callWG   sync.WaitGroup
	streamWG sync.WaitGroup
}

type unaryCall struct {
	cancel context.CancelFunc
	done   chan struct{}
	res    *transport.Response
}

// NewClient builds a client for hostname. The target is validated, but no
// connection is made until Start.
func NewClient(hostname string, options transport.Options, opts ...Option) (*Client, error) {
	o := newClientOptions(opts)
	conn, err := grpc.NewClient(hostname, o.dialOptions()...)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialTimeout := options.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	return &Client{
		hostname:    hostname,
		dialTimeout: dialTimeout,
		opts:        o,
		logger:      logger.With(zap.String("transport", "grpc")),
		conn:        conn,
		calls:       make(map[transport.StreamID]*unaryCall),
		streams:     make(map[transport.StreamID]*clientStream),
	}, nil
}

// Start connects to the host, waiting at most the dial timeout for the
// connection to become ready.
func (c *Client) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateRunning:
		return true
	case stateClosed:
		c.errCode.Store(int32(codes.Canceled))
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	if err := waitForReady(ctx, c.conn); err != nil {
		c.errCode.Store(int32(codes.Unavailable))
		c.logger.Warn("failed to connect",
			zap.Duration("dial_timeout", c.dialTimeout), zap.Error(err))
		return false
	}

	c.state = stateRunning
	c.logger.Debug("connected")
	return true
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("connection is shut down")
		case connectivity.Idle:
			conn.Connect()
		}
		if !conn.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// IsRunning reports whether the client was started and its connection has
// not failed since.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning && connAlive(c.conn)
}

func connAlive(conn *grpc.ClientConn) bool {
	switch conn.GetState() {
	case connectivity.TransientFailure, connectivity.Shutdown:
		return false
	default:
		return true
	}
}

// ErrCode returns the gRPC code of the most recent failure.
func (c *Client) ErrCode() int {
	return int(c.errCode.Load())
}

// usableLocked reports whether new calls may be made, recording the reason
// when they may not.
func (c *Client) usableLocked() bool {
	var code codes.Code
	switch {
	case c.state == stateClosed:
		code = codes.Canceled
	case c.state != stateRunning:
		code = codes.FailedPrecondition
	case !connAlive(c.conn):
		code = codes.Unavailable
	default:
		return true
	}
	c.errCode.Store(int32(code))
	return false
}

func (c *Client) nextID() transport.StreamID {
	id := c.lastID.Inc()
	if id == uint32(transport.InvalidStreamID) {
		id = c.lastID.Inc()
	}
	return transport.StreamID(id)
}

func (c *Client) outgoingContext(ctx context.Context, req *transport.Request) context.Context {
	md, dropped := toMetadata(req.Headers)
	if len(dropped) > 0 {
		c.logger.Warn("dropped reserved headers",
			zap.String("procedure", req.Procedure), zap.Strings("headers", dropped))
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) recordFailure(msg, procedure string, err error) {
	code := status.Code(err)
	if errors.Is(err, io.EOF) {
		code = codes.Unavailable
	}
	c.errCode.Store(int32(code))
	c.logger.Debug(msg, zap.String("procedure", procedure), zap.Stringer("code", code), zap.Error(err))
}

// Send dispatches a unary request and returns the stream id its response
// will be delivered on.
func (c *Client) Send(ctx context.Context, req *transport.Request) transport.StreamID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked() {
		return transport.InvalidStreamID
	}

	id := c.nextID()
	callCtx, cancel := context.WithCancel(c.outgoingContext(ctx, req))
	call := &unaryCall{cancel: cancel, done: make(chan struct{})}
	c.calls[id] = call

	c.callWG.Add(1)
	go c.invoke(callCtx, id, call, req)
	return id
}

func (c *Client) invoke(ctx context.Context, id transport.StreamID, call *unaryCall, req *transport.Request) {
	defer c.callWG.Done()
	defer call.cancel()

	var (
		reply           []byte
		header, trailer metadata.MD
	)
	err := c.conn.Invoke(ctx, methodName(req.Procedure), req.Body, &reply,
		grpc.Header(&header), grpc.Trailer(&trailer))
	if err != nil {
		c.logger.Debug("call failed", zap.String("procedure", req.Procedure), zap.Error(err))
	}

	call.res = &transport.Response{
		StreamID: id,
		Headers:  fromMetadata(header),
		Trailers: statusTrailers(trailer, err),
		Body:     reply,
	}
	close(call.done)
}

// Recv waits for the next response on the stream. A unary call yields a
// single response; a stream yields one response per message followed by an
// End response carrying its status.
func (c *Client) Recv(ctx context.Context, id transport.StreamID) (*transport.Response, error) {
	c.mu.Lock()
	call, isCall := c.calls[id]
	stream, isStream := c.streams[id]
	c.mu.Unlock()

	switch {
	case isCall:
		return c.recvCall(ctx, id, call)
	case isStream:
		return c.recvStream(ctx, stream)
	default:
		return nil, errUnknownStream(id)
	}
}

func (c *Client) recvCall(ctx context.Context, id transport.StreamID, call *unaryCall) (*transport.Response, error) {
	select {
	case <-call.done:
		c.forgetCall(id)
		return call.res, nil
	case <-ctx.Done():
		// Nobody will ask for this response again.
		c.forgetCall(id)
		call.cancel()
		return nil, ctx.Err()
	}
}

func (c *Client) forgetCall(id transport.StreamID) {
	c.mu.Lock()
	delete(c.calls, id)
	c.mu.Unlock()
}

// StreamExists reports whether id names a pending unary call or an open
// stream.
func (c *Client) StreamExists(id transport.StreamID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, isCall := c.calls[id]
	_, isStream := c.streams[id]
	return isCall || isStream
}

// Close shuts the client down. Open streams are cancelled. With drain set,
// in-flight unary calls are allowed to finish and their responses remain
// available to Recv; otherwise they are cancelled. Close returns false if
// the client was already closed.
func (c *Client) Close(drain bool) bool {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return false
	}
	c.state = stateClosed
	streams := c.streams
	c.streams = make(map[transport.StreamID]*clientStream)
	var calls []*unaryCall
	if !drain {
		for _, call := range c.calls {
			calls = append(calls, call)
		}
	}
	c.mu.Unlock()

	var err error
	for _, s := range streams {
		if drain {
			err = multierr.Append(err, s.closeSend())
		}
		s.cancel()
	}
	for _, call := range calls {
		call.cancel()
	}

	c.callWG.Wait()
	c.streamWG.Wait()

	if cerr := c.conn.Close(); cerr != nil && status.Code(cerr) != codes.Canceled {
		err = multierr.Append(err, cerr)
	}
	if err != nil {
		c.logger.Warn("errors while closing", zap.Error(err))
	}
	c.logger.Debug("closed", zap.Bool("drain", drain))
	return true
}

func methodName(procedure string) string {
	if strings.HasPrefix(procedure, "/") {
		return procedure
	}
	return "/" + procedure
}

// Factory builds gRPC transport clients.
type Factory struct {
	opts []Option
}

// NewFactory returns a Factory whose clients are built with opts.
func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts}
}

// NewClient builds a client for hostname.
func (f *Factory) NewClient(hostname string, options transport.Options) (transport.Client, error) {
	return NewClient(hostname, options, f.opts...)
}
