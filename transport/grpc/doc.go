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

// Package grpc implements transport.Client over gRPC.
//
// A Client multiplexes unary calls and streams over one gRPC connection.
// Unary requests are dispatched asynchronously: Send returns a stream id at
// once and Recv waits for the response. Stream messages are read ahead into
// a per-stream buffer so that Recv can honor a deadline without tearing the
// stream down.
//
//	factory := grpc.NewFactory(grpc.KeepaliveParams(keepalive.ClientParameters{
//		Time: 30 * time.Second,
//	}))
//	client, err := rpcclient.New("echo.Echo/", "127.0.0.1:9501", rpcclient.WithFactory(factory))
//
// Response status is reported in the grpc-status and grpc-message trailers
// of every final response, including failures raised by the gRPC runtime
// itself.
package grpc
