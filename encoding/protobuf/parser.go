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

package protobuf

import (
	"errors"
	"fmt"
	"io"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/rpcerrors"
)

// ErrNoResponse is returned when there is no response to parse.
var ErrNoResponse = errors.New("no response received")

// Parser turns a raw response into a reply and its status.
type Parser interface {
	// ParseResponse returns io.EOF when the response marks a cleanly
	// finished stream with no further message.
	ParseResponse(res *transport.Response, decode DecodeFunc) (proto.Message, rpcerrors.Code, error)
}

// NewParser returns the default Parser.
func NewParser() Parser { return parser{} }

type parser struct{}

// ParseResponse applies these rules in order:
//
//   - a nil response fails with ErrNoResponse
//   - a non-OK status, from the trailers or from the headers of a
//     trailers-only response, yields a types.StringValue holding the status
//     message
//   - a stream broken below the RPC layer yields CodeUnavailable
//   - a finished stream yields io.EOF
//   - anything else is decoded with decode and reported as CodeOK
func (parser) ParseResponse(res *transport.Response, decode DecodeFunc) (proto.Message, rpcerrors.Code, error) {
	if res == nil {
		return nil, rpcerrors.CodeUnknown, ErrNoResponse
	}

	if status, message, ok := res.Status(); ok {
		code, err := rpcerrors.Parse(status)
		if err != nil {
			return nil, rpcerrors.CodeUnknown, fmt.Errorf("malformed %s %q: %v", transport.StatusHeader, status, err)
		}
		if code != rpcerrors.CodeOK {
			return &types.StringValue{Value: message}, code, nil
		}
	} else if res.ErrCode != 0 {
		return &types.StringValue{
			Value: fmt.Sprintf("stream %d failed with transport error %d", res.StreamID, res.ErrCode),
		}, rpcerrors.CodeUnavailable, nil
	}

	if res.End {
		return nil, rpcerrors.CodeOK, io.EOF
	}

	if decode == nil {
		return nil, rpcerrors.CodeInternal, errors.New("no decoder for response")
	}
	reply, err := decode(res.Body)
	if err != nil {
		return nil, rpcerrors.CodeInternal, err
	}
	return reply, rpcerrors.CodeOK, nil
}
