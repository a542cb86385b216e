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
	"time"

	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
)

// CallOption customizes a single call.
type CallOption interface {
	apply(*callOptions)
}

type callOptionFunc func(*callOptions)

func (f callOptionFunc) apply(opts *callOptions) { f(opts) }

type callOptions struct {
	headers     transport.Headers
	recvTimeout time.Duration
	decode      protobuf.DecodeFunc
}

func newCallOptions(opts []CallOption) callOptions {
	var options callOptions
	for _, opt := range opts {
		opt.apply(&options)
	}
	return options
}

// WithHeader adds a header to the request. Header keys are case
// insensitive and override the headers configured on the Client.
//
//	reply, err := client.DoSend(ctx, "Say", msg, rpcclient.WithHeader("Team", "rpc"))
func WithHeader(k, v string) CallOption {
	return callOptionFunc(func(opts *callOptions) {
		opts.headers = opts.headers.With(k, v)
	})
}

// WithRecvTimeout bounds how long this call waits for each response,
// replacing the timeout configured on the Client.
func WithRecvTimeout(d time.Duration) CallOption {
	return callOptionFunc(func(opts *callOptions) {
		opts.recvTimeout = d
	})
}

// WithResponseDecoder decodes replies with decode instead of resolving it
// from the service interface.
func WithResponseDecoder(decode protobuf.DecodeFunc) CallOption {
	return callOptionFunc(func(opts *callOptions) {
		opts.decode = decode
	})
}
