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
	"bytes"
	"sync"

	"github.com/gogo/protobuf/jsonpb"
	"github.com/gogo/protobuf/proto"
)

var (
	_bufferPool = sync.Pool{
		New: func() interface{} {
			return proto.NewBuffer(make([]byte, 0, 1024))
		},
	}

	_jsonMarshaler   = &jsonpb.Marshaler{}
	_jsonUnmarshaler = &jsonpb.Unmarshaler{AllowUnknownFields: true}
)

// Marshal serializes the message into a freshly allocated byte slice.
func Marshal(message proto.Message) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := buf.Marshal(message); err != nil {
		return nil, err
	}
	body := buf.Bytes()
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// Unmarshal decodes body into message. An empty body leaves message at its
// zero value.
func Unmarshal(body []byte, message proto.Message) error {
	if len(body) == 0 {
		return nil
	}
	return proto.Unmarshal(body, message)
}

// MarshalJSON renders the message as protobuf JSON.
func MarshalJSON(message proto.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := _jsonMarshaler.Marshal(&buf, message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes protobuf JSON into message, ignoring unknown fields.
func UnmarshalJSON(body []byte, message proto.Message) error {
	if len(body) == 0 {
		return nil
	}
	return _jsonUnmarshaler.Unmarshal(bytes.NewReader(body), message)
}

func getBuffer() *proto.Buffer {
	buf := _bufferPool.Get().(*proto.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *proto.Buffer) {
	_bufferPool.Put(buf)
}
