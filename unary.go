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
	"context"
	"errors"
	"io"

	"github.com/gogo/protobuf/proto"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/internal/retry"
	"go.uber.org/rpcclient/rpcerrors"
	"go.uber.org/zap"
)

// SimpleRequest calls a unary method and returns the reply together with
// its status. A non-OK status is not an error at this level: the reply is
// then a types.StringValue holding the status message.
//
// Sending is retried up to the configured number of attempts, reconnecting
// the transport after each rejected send. Everything after the send,
// including decoding, is attempted once.
func (c *Client) SimpleRequest(ctx context.Context, method string, argument proto.Message, opts ...CallOption) (reply proto.Message, code rpcerrors.Code, err error) {
	options := newCallOptions(opts)
	procedure := c.procedure(method)

	decode, err := c.responseDecoder(method, options)
	if err != nil {
		return nil, rpcerrors.CodeInternal, err
	}

	span, ctx := c.startSpan(ctx, procedure)
	defer func() { c.finishSpan(span, code, err) }()

	c.metrics.requests.Inc(1)
	headers := c.callHeaders(options.headers)
	c.injectSpan(span, &headers)

	tc, id, err := c.send(ctx, procedure, argument, headers)
	if err != nil {
		c.metrics.requestErrors.Inc(1)
		return nil, errorCode(err), err
	}

	recvCtx, cancel := c.recvContext(ctx, options)
	defer cancel()

	res, err := tc.Recv(recvCtx, id)
	if err != nil {
		c.metrics.requestErrors.Inc(1)
		err = newRecvError(c.hostname, procedure, err)
		return nil, errorCode(err), err
	}

	reply, code, err = c.parser.ParseResponse(res, decode)
	if err == io.EOF {
		err = &ClientError{
			Code:     rpcerrors.CodeInternal,
			Hostname: c.hostname,
			Message:  procedure + " finished without a reply",
			cause:    err,
		}
	}
	if err != nil || code != rpcerrors.CodeOK {
		c.metrics.requestErrors.Inc(1)
	}
	return reply, code, err
}

// DoSend calls a unary method and returns its reply. A non-OK status fails
// with a *RequestError carrying the procedure, the reply and the status.
func (c *Client) DoSend(ctx context.Context, method string, argument proto.Message, opts ...CallOption) (proto.Message, error) {
	reply, code, err := c.SimpleRequest(ctx, method, argument, opts...)
	if err != nil {
		return nil, err
	}
	if code != rpcerrors.CodeOK {
		return nil, newRequestError(c.procedure(method), reply, code)
	}
	return reply, nil
}

// send writes the request, retrying rejected sends. It returns the
// transport client that accepted the request and the stream carrying the
// response.
func (c *Client) send(ctx context.Context, procedure string, argument proto.Message, headers transport.Headers) (transport.Client, transport.StreamID, error) {
	var (
		tc       transport.Client
		id       transport.StreamID
		attempts int
	)
	err := retry.Do(ctx, func(ctx context.Context, attempt uint) error {
		attempts = int(attempt) + 1

		client, err := c.ensureInitialized()
		if err != nil {
			return err
		}

		req, err := c.builder.build(procedure, argument, headers)
		if err != nil {
			return err
		}

		sid := client.Send(ctx, req)
		if sid == transport.InvalidStreamID {
			nativeCode := client.ErrCode()
			// Reconnect now; the retry interval applies before the next
			// attempt.
			if rerr := c.reinit(client, nativeCode); rerr != nil {
				c.logger.Warn("failed to reconnect transport client",
					zap.String("procedure", procedure),
					zap.Error(rerr))
			}
			return &sendFailure{procedure: procedure, nativeCode: nativeCode}
		}

		tc, id = client, sid
		return nil
	},
		retry.Attempts(uint(c.cfg.RetryAttempts)),
		retry.BackoffStrategy(c.backoff),
		retry.Retryable(isRetryable),
		retry.WithObserver(c.observer),
	)

	var sf *sendFailure
	if errors.As(err, &sf) {
		err = newSendExhaustedError(c.hostname, attempts, sf)
	}
	return tc, id, err
}

func (c *Client) recvContext(ctx context.Context, opts callOptions) (context.Context, context.CancelFunc) {
	timeout := c.cfg.RecvTimeout
	if opts.recvTimeout > 0 {
		timeout = opts.recvTimeout
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
