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
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
	rpcgrpc "go.uber.org/rpcclient/transport/grpc"
	"go.uber.org/zap"
)

// Option customizes a Client.
type Option interface {
	apply(*clientOptions)
}

type optionFunc func(*clientOptions)

func (f optionFunc) apply(opts *clientOptions) { f(opts) }

type clientOptions struct {
	config   Config
	logger   *zap.Logger
	scope    tally.Scope
	tracer   opentracing.Tracer
	factory  transport.Factory
	parser   protobuf.Parser
	registry protobuf.Registry
}

func newClientOptions(cfg Config, opts []Option) clientOptions {
	options := clientOptions{
		config:   cfg,
		logger:   zap.NewNop(),
		scope:    tally.NoopScope,
		tracer:   opentracing.GlobalTracer(),
		factory:  rpcgrpc.NewFactory(),
		parser:   protobuf.NewParser(),
		registry: protobuf.NewRegistry(),
	}
	for _, opt := range opts {
		opt.apply(&options)
	}
	return options
}

// WithLogger sets the logger of the Client.
//
// Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *clientOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithTally sets the scope the Client reports metrics to.
//
// Defaults to tally.NoopScope.
func WithTally(scope tally.Scope) Option {
	return optionFunc(func(opts *clientOptions) {
		if scope != nil {
			opts.scope = scope
		}
	})
}

// WithTracer sets the tracer used for unary calls.
//
// Defaults to opentracing.GlobalTracer().
func WithTracer(tracer opentracing.Tracer) Option {
	return optionFunc(func(opts *clientOptions) {
		if tracer != nil {
			opts.tracer = tracer
		}
	})
}

// WithFactory sets the factory that builds transport clients when no
// transport override is configured.
//
// Defaults to the gRPC transport.
func WithFactory(f transport.Factory) Option {
	return optionFunc(func(opts *clientOptions) {
		if f != nil {
			opts.factory = f
		}
	})
}

// WithParser replaces the response parser.
func WithParser(p protobuf.Parser) Option {
	return optionFunc(func(opts *clientOptions) {
		if p != nil {
			opts.parser = p
		}
	})
}

// WithRegistry replaces the registry resolving reply types.
func WithRegistry(r protobuf.Registry) Option {
	return optionFunc(func(opts *clientOptions) {
		if r != nil {
			opts.registry = r
		}
	})
}

// WithTransport makes the Client use tc instead of building its own
// transport client. The Client still closes tc when it is closed.
func WithTransport(tc transport.Client) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.Client = tc
	})
}

// WithServiceInterface sets the descriptor used to resolve reply types.
func WithServiceInterface(desc *protobuf.ServiceDescriptor) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.ServiceInterface = desc
	})
}

// WithHeaders sets headers sent with every request. Headers given to a call
// with WithHeader take precedence.
func WithHeaders(headers map[string]string) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.Headers = headers
	})
}

// RetryAttempts bounds the number of send attempts of a unary call.
//
// Defaults to 3.
func RetryAttempts(n int) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.RetryAttempts = n
	})
}

// RetryInterval sets the wait between send attempts. It is kept with
// millisecond precision.
//
// Defaults to 100 milliseconds.
func RetryInterval(d time.Duration) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.RetryInterval = int(d / time.Millisecond)
	})
}

// RecvTimeout bounds how long a call waits for its response.
//
// Defaults to waiting forever.
func RecvTimeout(d time.Duration) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.RecvTimeout = d
	})
}

// DialTimeout bounds how long starting the transport may take.
func DialTimeout(d time.Duration) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.config.DialTimeout = d
	})
}
