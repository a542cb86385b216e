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
	"github.com/gogo/protobuf/proto"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
)

// RequestIDHeader carries an identifier shared by every attempt of one
// logical call.
const RequestIDHeader = "rpc-request-id"

// requestBuilder assembles outgoing requests. It holds only immutable state
// and has no side effects.
type requestBuilder struct {
	headers transport.Headers
}

func newRequestBuilder(headers map[string]string) requestBuilder {
	return requestBuilder{headers: transport.HeadersFromMap(headers)}
}

// build serializes argument and attaches callHeaders, filling keys they do
// not set from the configured headers.
func (b requestBuilder) build(procedure string, argument proto.Message, callHeaders transport.Headers) (*transport.Request, error) {
	var body []byte
	if argument != nil {
		var err error
		if body, err = protobuf.Marshal(argument); err != nil {
			return nil, err
		}
	}
	return &transport.Request{
		Procedure: procedure,
		Headers:   callHeaders.WithDefaults(b.headers),
		Body:      body,
	}, nil
}
