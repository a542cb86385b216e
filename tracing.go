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

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/rpcerrors"
	"go.uber.org/zap"
)

// headersCarrier lets a tracer write span contexts into request headers.
type headersCarrier struct {
	headers *transport.Headers
}

var _ opentracing.TextMapWriter = headersCarrier{}

func (c headersCarrier) Set(key, val string) {
	*c.headers = c.headers.With(key, val)
}

// callHeaders returns the headers of one logical call: those given to the
// call plus a request id, unless the call or the Client already set one.
func (c *Client) callHeaders(h transport.Headers) transport.Headers {
	h = h.Clone()
	if _, ok := h.Get(RequestIDHeader); ok {
		return h
	}
	if _, ok := c.builder.headers.Get(RequestIDHeader); ok {
		return h
	}
	return h.With(RequestIDHeader, uuid.New().String())
}

func (c *Client) startSpan(ctx context.Context, procedure string) (opentracing.Span, context.Context) {
	opts := []opentracing.StartSpanOption{
		ext.SpanKindRPCClient,
		opentracing.Tags{
			string(ext.PeerHostname): c.hostname,
			string(ext.Component):    "rpcclient",
		},
	}
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	span := c.tracer.StartSpan(procedure, opts...)
	return span, opentracing.ContextWithSpan(ctx, span)
}

func (c *Client) injectSpan(span opentracing.Span, headers *transport.Headers) {
	if err := c.tracer.Inject(span.Context(), opentracing.TextMap, headersCarrier{headers}); err != nil {
		c.logger.Debug("failed to inject span context", zap.Error(err))
	}
}

func (c *Client) finishSpan(span opentracing.Span, code rpcerrors.Code, err error) {
	span.SetTag("rpc.status_code", code.String())
	if err != nil {
		ext.Error.Set(span, true)
		span.LogFields(log.String("event", "error"), log.Error(err))
	} else if code != rpcerrors.CodeOK {
		ext.Error.Set(span, true)
	}
	span.Finish()
}
