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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/rpcclient/api/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errSendClosed = errors.New("stream is closed for sending")

type clientStream struct {
	id     transport.StreamID
	ctx    context.Context
	cancel context.CancelFunc
	stream grpc.ClientStream
	msgs   chan *transport.Response

	sendMu     sync.Mutex
	sendClosed bool
}

// send writes body to the stream and half-closes it if end is set. A nil
// body with end set only half-closes.
func (s *clientStream) send(body []byte, end bool) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return errSendClosed
	}
	if body != nil || !end {
		if err := s.stream.SendMsg(body); err != nil {
			return err
		}
	}
	if end {
		s.sendClosed = true
		return s.stream.CloseSend()
	}
	return nil
}

func (s *clientStream) closeSend() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return nil
	}
	s.sendClosed = true
	return s.stream.CloseSend()
}

// OpenStream opens a stream for the request and writes its body as the
// first message, half-closing the stream if end is set.
func (c *Client) OpenStream(ctx context.Context, req *transport.Request, end bool) transport.StreamID {
	c.mu.Lock()
	usable := c.usableLocked()
	c.mu.Unlock()
	if !usable {
		return transport.InvalidStreamID
	}

	streamCtx, cancel := context.WithCancel(c.outgoingContext(ctx, req))
	stream, err := c.conn.NewStream(streamCtx, _streamDesc, methodName(req.Procedure))
	if err != nil {
		cancel()
		c.recordFailure("failed to open stream", req.Procedure, err)
		return transport.InvalidStreamID
	}

	s := &clientStream{
		ctx:    streamCtx,
		cancel: cancel,
		stream: stream,
		msgs:   make(chan *transport.Response, c.opts.streamBufferSize),
	}
	if err := s.send(req.Body, end); err != nil {
		cancel()
		c.recordFailure("failed to write to stream", req.Procedure, err)
		return transport.InvalidStreamID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.usableLocked() {
		cancel()
		return transport.InvalidStreamID
	}
	s.id = c.nextID()
	c.streams[s.id] = s

	c.streamWG.Add(1)
	go c.readStream(s)
	return s.id
}

// Write sends body on an open stream, half-closing it if end is set.
func (c *Client) Write(id transport.StreamID, body []byte, end bool) bool {
	c.mu.Lock()
	s, ok := c.streams[id]
	c.mu.Unlock()
	if !ok {
		c.recordFailure("write to unknown stream", "", status.Error(codes.NotFound, errUnknownStream(id).Error()))
		return false
	}

	if err := s.send(body, end); err != nil {
		c.recordFailure("failed to write to stream", "", err)
		return false
	}
	return true
}

func errUnknownStream(id transport.StreamID) error {
	return fmt.Errorf("unknown stream %d", id)
}

// readStream moves received messages into the stream buffer until the
// stream ends or is cancelled. The final response carries the status.
func (c *Client) readStream(s *clientStream) {
	defer c.streamWG.Done()
	defer close(s.msgs)

	first := true
	for {
		var body []byte
		err := s.stream.RecvMsg(&body)

		res := &transport.Response{StreamID: s.id, Body: body}
		if first {
			if md, herr := s.stream.Header(); herr == nil {
				res.Headers = fromMetadata(md)
			}
			first = false
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			res.Body = nil
			res.End = true
			res.Trailers = statusTrailers(s.stream.Trailer(), err)
		}

		select {
		case s.msgs <- res:
		case <-s.ctx.Done():
			return
		}
		if res.End {
			return
		}
	}
}

func (c *Client) recvStream(ctx context.Context, s *clientStream) (*transport.Response, error) {
	select {
	case res, ok := <-s.msgs:
		if !ok {
			c.forgetStream(s)
			return nil, fmt.Errorf("stream %d was cancelled", s.id)
		}
		if res.End {
			c.forgetStream(s)
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) forgetStream(s *clientStream) {
	c.mu.Lock()
	delete(c.streams, s.id)
	c.mu.Unlock()
	s.cancel()
}
