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
	"math"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

const (
	// set explicitly so that behavior does not drift with grpc-go defaults
	defaultClientMaxRecvMsgSize = 1024 * 1024 * 4
	defaultClientMaxSendMsgSize = math.MaxInt32

	defaultDialTimeout = 5 * time.Second

	// stream messages read ahead of Recv
	defaultStreamBufferSize = 16
)

// Option customizes the clients built by a Factory.
type Option func(*clientOptions)

// DialerCredentials specifies the transport credentials used to connect.
// Connections are insecure by default.
func DialerCredentials(creds credentials.TransportCredentials) Option {
	return func(o *clientOptions) {
		o.creds = creds
	}
}

// ContextDialer replaces the dialer used to reach the host.
func ContextDialer(f func(context.Context, string) (net.Conn, error)) Option {
	return func(o *clientOptions) {
		o.contextDialer = f
	}
}

// KeepaliveParams sets the gRPC keepalive parameters of the connection.
func KeepaliveParams(params keepalive.ClientParameters) Option {
	return func(o *clientOptions) {
		o.keepaliveParams = &params
	}
}

// ClientMaxRecvMsgSize is the maximum message size the client can receive.
//
// The default is 4MB.
func ClientMaxRecvMsgSize(size int) Option {
	return func(o *clientOptions) {
		o.maxRecvMsgSize = size
	}
}

// ClientMaxSendMsgSize is the maximum message size the client can send.
//
// The default is math.MaxInt32.
func ClientMaxSendMsgSize(size int) Option {
	return func(o *clientOptions) {
		o.maxSendMsgSize = size
	}
}

// ClientMaxHeaderListSize sets the maximum size of the header list the
// client accepts.
func ClientMaxHeaderListSize(size uint32) Option {
	return func(o *clientOptions) {
		o.maxHeaderListSize = &size
	}
}

// StreamBufferSize sets how many stream messages are read ahead of Recv.
//
// The default is 16.
func StreamBufferSize(n int) Option {
	return func(o *clientOptions) {
		o.streamBufferSize = n
	}
}

type clientOptions struct {
	creds             credentials.TransportCredentials
	contextDialer     func(context.Context, string) (net.Conn, error)
	keepaliveParams   *keepalive.ClientParameters
	maxRecvMsgSize    int
	maxSendMsgSize    int
	maxHeaderListSize *uint32
	streamBufferSize  int
}

func newClientOptions(options []Option) clientOptions {
	opts := clientOptions{
		maxRecvMsgSize:   defaultClientMaxRecvMsgSize,
		maxSendMsgSize:   defaultClientMaxSendMsgSize,
		streamBufferSize: defaultStreamBufferSize,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.streamBufferSize < 0 {
		opts.streamBufferSize = 0
	}
	return opts
}

func (o clientOptions) dialOptions() []grpc.DialOption {
	creds := insecure.NewCredentials()
	if o.creds != nil {
		creds = o.creds
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(rawCodec{}),
			grpc.MaxCallRecvMsgSize(o.maxRecvMsgSize),
			grpc.MaxCallSendMsgSize(o.maxSendMsgSize),
		),
	}
	if o.contextDialer != nil {
		opts = append(opts, grpc.WithContextDialer(o.contextDialer))
	}
	if o.keepaliveParams != nil {
		opts = append(opts, grpc.WithKeepaliveParams(*o.keepaliveParams))
	}
	if o.maxHeaderListSize != nil {
		opts = append(opts, grpc.WithMaxHeaderListSize(*o.maxHeaderListSize))
	}
	return opts
}
