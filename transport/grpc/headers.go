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
	"strconv"
	"strings"

	"go.uber.org/rpcclient/api/transport"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const contentTypeHeader = "content-type"

// isReserved reports headers that gRPC owns and that callers may not set.
func isReserved(header string) bool {
	return strings.HasPrefix(header, "grpc-") ||
		strings.HasPrefix(header, ":") ||
		header == contentTypeHeader
}

// toMetadata converts request headers into outgoing metadata, returning the
// reserved headers it dropped.
func toMetadata(headers transport.Headers) (md metadata.MD, dropped []string) {
	md = make(metadata.MD, headers.Len())
	for header, value := range headers.Items() {
		header = transport.CanonicalizeHeaderKey(header)
		if isReserved(header) {
			dropped = append(dropped, header)
			continue
		}
		md[header] = []string{value}
	}
	return md, dropped
}

// fromMetadata converts received metadata into headers. Repeated values are
// joined with commas.
func fromMetadata(md metadata.MD) transport.Headers {
	headers := transport.NewHeaders()
	for header, values := range md {
		switch len(values) {
		case 0:
			continue
		case 1:
			headers = headers.With(header, values[0])
		default:
			headers = headers.With(header, strings.Join(values, ","))
		}
	}
	return headers
}

// statusTrailers returns trailers carrying the status of err, which is nil
// for a successful call. gRPC strips the status from the trailer metadata
// it hands out so it is added back here.
func statusTrailers(md metadata.MD, err error) transport.Headers {
	st := status.Convert(err)
	trailers := fromMetadata(md).
		With(transport.StatusHeader, strconv.Itoa(int(st.Code())))
	if msg := st.Message(); msg != "" {
		trailers = trailers.With(transport.MessageHeader, msg)
	}
	return trailers
}
