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

// Package protobuf serializes Protocol Buffers messages for rpcclient and
// turns raw transport responses back into messages.
//
// Messages are encoded with github.com/gogo/protobuf. Reply types are looked
// up through a Registry, keyed by a ServiceDescriptor and a method name:
//
//	desc := &protobuf.ServiceDescriptor{
//		Name: "echo.Echo",
//		Methods: []protobuf.MethodDescriptor{
//			{Name: "Say", NewResponse: func() proto.Message { return &echo.Reply{} }},
//		},
//	}
//
// Responses carrying a non-OK status are parsed into a types.StringValue
// holding the status message.
package protobuf
