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
	"strconv"
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
)

const (
	_service  = "echo.Echo/"
	_hostname = "127.0.0.1:9501"
)

var _echoDescriptor = &protobuf.ServiceDescriptor{
	Name: "echo.Echo",
	Methods: []protobuf.MethodDescriptor{
		{Name: "Say", NewResponse: newStringValue},
		{Name: "Collect", NewResponse: newStringValue, ClientStreams: true},
		{Name: "Watch", NewResponse: newStringValue, ServerStreams: true},
		{Name: "Chat", NewResponse: newStringValue, ClientStreams: true, ServerStreams: true},
	},
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newStringValue() proto.Message { return &types.StringValue{} }

func mustMarshal(t testing.TB, msg proto.Message) []byte {
	body, err := protobuf.Marshal(msg)
	require.NoError(t, err)
	return body
}

func newTestClient(t testing.TB, opts ...Option) *Client {
	opts = append([]Option{WithServiceInterface(_echoDescriptor)}, opts...)
	client, err := New(_service, _hostname, opts...)
	require.NoError(t, err)
	return client
}

func okResponse(t testing.TB, id transport.StreamID, reply proto.Message) *transport.Response {
	return &transport.Response{
		StreamID: id,
		Body:     mustMarshal(t, reply),
		Trailers: transport.NewHeaders().With(transport.StatusHeader, "0"),
	}
}

func statusResponse(id transport.StreamID, code int, message string) *transport.Response {
	return &transport.Response{
		StreamID: id,
		End:      true,
		Trailers: transport.NewHeaders().
			With(transport.StatusHeader, strconv.Itoa(code)).
			With(transport.MessageHeader, message),
	}
}

// counter returns the value of the counter with the given name whose tags
// include tags.
func counter(scope tally.TestScope, name string, tags map[string]string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() != name {
			continue
		}
		match := true
		for k, v := range tags {
			if c.Tags()[k] != v {
				match = false
				break
			}
		}
		if match {
			return c.Value()
		}
	}
	return 0
}
