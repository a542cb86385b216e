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

// Package rpcclient is a client for Protocol Buffers services reached over a
// multiplexed transport, by default gRPC.
//
// A Client is bound to one service and one host. It connects lazily on the
// first call and reconnects when the transport stops accepting requests.
//
//	client, err := rpcclient.New("echo.Echo/", "127.0.0.1:9501",
//		rpcclient.WithServiceInterface(echoDescriptor),
//		rpcclient.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	reply, err := client.DoSend(ctx, "Say", &echo.Request{Text: "hi"})
//
// # Unary calls
//
// SimpleRequest and DoSend send one message and receive one reply. Sending
// is retried a bounded number of times with a fixed interval when the
// transport rejects the request; no other failure is retried. SimpleRequest
// returns the reply along with its status, while DoSend turns a non-OK
// status into a *RequestError.
//
// # Streaming calls
//
// ClientStreamRequest, ServerStreamRequest and BidiRequest return handles
// that the caller drives directly. The stream opens on the first Send.
//
//	call, err := client.BidiRequest(ctx, "Chat", nil)
//	if err := call.Send(msg); err != nil { ... }
//	reply, code, err := call.Recv()
//	err = call.End()
//
// # Errors
//
// Invalid configuration fails with a *ConfigError before any network
// activity. Transport failures surface as *ClientError carrying the host and
// the transport's native error code.
package rpcclient
