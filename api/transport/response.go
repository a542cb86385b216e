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

package transport

// Response is a single message received on a stream.
type Response struct {
	// StreamID of the stream the message arrived on.
	StreamID StreamID

	// Headers sent by the server at the start of the stream.
	Headers Headers

	// Trailers sent by the server at the end of the stream. They are
	// populated only on the final message.
	Trailers Headers

	// Body of the message.
	Body []byte

	// End reports that the stream finished. An End response carries no
	// message, only the final status.
	End bool

	// ErrCode is the transport's native error code for a stream that
	// failed below the RPC layer, or zero.
	ErrCode int
}

// Status returns the RPC status carried by the response, looking at the
// trailers first and the headers second.
func (r *Response) Status() (status string, message string, ok bool) {
	for _, h := range []Headers{r.Trailers, r.Headers} {
		if s, found := h.Get(StatusHeader); found {
			message, _ = h.Get(MessageHeader)
			return s, message, true
		}
	}
	return "", "", false
}
