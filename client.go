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
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/rpcclient/api/backoff"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
	ibackoff "go.uber.org/rpcclient/internal/backoff"
	"go.uber.org/rpcclient/internal/lifecycle"
	"go.uber.org/rpcclient/internal/retry"
	"go.uber.org/zap"
)

// Client calls the procedures of one remote service.
//
// The connection is established lazily by the first call and shared by all
// calls. A Client is safe for concurrent use and must be closed when it is
// no longer needed.
type Client struct {
	cfg      Config
	service  string
	hostname string

	logger   *zap.Logger
	metrics  clientMetrics
	tracer   opentracing.Tracer
	factory  transport.Factory
	parser   protobuf.Parser
	registry protobuf.Registry
	builder  requestBuilder
	backoff  backoff.Strategy
	observer *retry.Observer

	once *lifecycle.Once

	mu          sync.Mutex
	tc          transport.Client
	initialized bool
	closed      bool
	// reconnecting is set from a forced re-init until a start succeeds.
	reconnecting bool

	// retired counts replaced transport clients still draining.
	retired sync.WaitGroup
}

type clientMetrics struct {
	inits         tally.Counter
	initFailures  tally.Counter
	reinits       tally.Counter
	requests      tally.Counter
	requestErrors tally.Counter
}

func newClientMetrics(scope tally.Scope) clientMetrics {
	return clientMetrics{
		inits:         scope.Counter("inits"),
		initFailures:  scope.Counter("init_failures"),
		reinits:       scope.Counter("reinits"),
		requests:      scope.Counter("requests"),
		requestErrors: scope.Counter("request_errors"),
	}
}

// New builds a Client for the service prefix, such as "echo.Echo/", hosted
// at hostname. No connection is made until the first call.
func New(service, hostname string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	cfg.Service = service
	cfg.Hostname = hostname
	return newClient(newClientOptions(cfg, opts))
}

// NewFromOptions builds a Client from an option bag. Recognized keys are
// client, service_interface, headers, retry_attempts, retry_interval,
// recv_timeout and dial_timeout; unknown keys fail with a ConfigError.
func NewFromOptions(service, hostname string, options map[string]interface{}, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	if err := decodeConfig(&cfg, options, noVariables); err != nil {
		return nil, err
	}
	cfg.Service = service
	cfg.Hostname = hostname
	return newClient(newClientOptions(cfg, opts))
}

// NewFromConfig builds a Client from a Config, such as one returned by
// LoadConfig.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	return newClient(newClientOptions(cfg, opts))
}

func noVariables(string) (string, bool) { return "", false }

func newClient(opts clientOptions) (*Client, error) {
	cfg := opts.config
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	fixed, err := ibackoff.NewFixed(cfg.retryInterval())
	if err != nil {
		return nil, &ConfigError{err: err}
	}

	scope := opts.scope.Tagged(map[string]string{"service": cfg.Service})
	logger := opts.logger.With(zap.String("service", cfg.Service), zap.String("hostname", cfg.Hostname))

	c := &Client{
		cfg:      cfg,
		service:  cfg.Service,
		hostname: cfg.Hostname,
		logger:   logger,
		metrics:  newClientMetrics(scope),
		tracer:   opts.tracer,
		factory:  opts.factory,
		parser:   opts.parser,
		registry: opts.registry,
		builder:  newRequestBuilder(cfg.Headers),
		backoff:  fixed,
		observer: retry.NewObserver(logger, scope),
		once:     lifecycle.NewOnce(),
	}
	// The Client is usable as soon as it exists; Close moves it to Stopped.
	_ = c.once.Start(nil)
	return c, nil
}

// Service returns the procedure prefix of the Client.
func (c *Client) Service() string { return c.service }

// Hostname returns the address of the remote host.
func (c *Client) Hostname() string { return c.hostname }

// Start connects the Client if it is not connected yet. It reports true if
// the transport is running afterwards.
func (c *Client) Start() bool {
	tc, err := c.ensureInitialized()
	if err != nil {
		c.logger.Warn("failed to start rpc client", zap.Error(err))
		return false
	}
	return tc.IsRunning() || tc.Start()
}

// Close closes the transport client, letting in-flight streams finish. It
// is safe to call more than once.
func (c *Client) Close() error {
	return c.once.Stop(func() error {
		c.mu.Lock()
		c.closed = true
		tc := c.tc
		c.tc = nil
		c.initialized = false
		c.mu.Unlock()

		if tc != nil {
			tc.Close(true)
			c.logger.Info("closed rpc client")
		}
		c.retired.Wait()
		return nil
	})
}

// ensureInitialized returns the running transport client, connecting it
// first if needed.
func (c *Client) ensureInitialized() (transport.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.initialized {
		return c.tc, nil
	}
	if err := c.initLocked(); err != nil {
		return nil, err
	}
	return c.tc, nil
}

// initLocked builds or reuses the transport client and starts it. c.mu must
// be held.
func (c *Client) initLocked() error {
	c.metrics.inits.Inc(1)

	tc, err := c.cfg.override()
	if err != nil {
		c.metrics.initFailures.Inc(1)
		return &ConfigError{err: err}
	}

	owned := tc == nil
	if owned {
		tc = c.tc
	}
	if tc == nil {
		tc, err = c.factory.NewClient(c.hostname, transport.Options{
			DialTimeout: c.cfg.DialTimeout,
			Logger:      c.logger,
		})
		if err != nil {
			c.metrics.initFailures.Inc(1)
			return newFactoryError(c.hostname, err)
		}
	}

	if !tc.IsRunning() && !tc.Start() {
		code := tc.ErrCode()
		c.metrics.initFailures.Inc(1)
		c.logger.Warn("failed to start transport client", zap.Int("native_code", code))
		if owned {
			// A client that failed to start is not restarted; the next
			// init builds a fresh one.
			tc.Close(false)
			c.tc = nil
		}
		return newStartError(c.hostname, code, c.reconnecting)
	}

	c.tc = tc
	c.initialized = true
	c.reconnecting = false
	c.logger.Info("rpc client connected")
	return nil
}

// reinit replaces stale after it failed to send. Concurrent callers that
// saw the same stale client replace it only once.
func (c *Client) reinit(stale transport.Client, nativeCode int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.tc != stale && c.initialized {
		return nil
	}

	c.metrics.reinits.Inc(1)
	c.logger.Warn("transport client failed to send, reconnecting", zap.Int("native_code", nativeCode))

	c.initialized = false
	c.reconnecting = true
	if _, isOverride := c.cfg.Client.(transport.Client); !isOverride && c.tc == stale {
		c.tc = nil
		c.retired.Add(1)
		go func() {
			defer c.retired.Done()
			stale.Close(true)
		}()
	}
	return c.initLocked()
}

// IsRunning reports whether the transport client is running.
func (c *Client) IsRunning() (bool, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return false, err
	}
	return tc.IsRunning(), nil
}

// ErrCode returns the native error code of the transport client.
func (c *Client) ErrCode() (int, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return 0, err
	}
	return tc.ErrCode(), nil
}

// Send writes a request on the transport client as is.
func (c *Client) Send(ctx context.Context, req *transport.Request) (transport.StreamID, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return transport.InvalidStreamID, err
	}
	return tc.Send(ctx, req), nil
}

// Recv reads the next response of a stream from the transport client.
func (c *Client) Recv(ctx context.Context, id transport.StreamID) (*transport.Response, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return nil, err
	}
	return tc.Recv(ctx, id)
}

// OpenStream opens a stream on the transport client.
func (c *Client) OpenStream(ctx context.Context, req *transport.Request, end bool) (transport.StreamID, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return transport.InvalidStreamID, err
	}
	return tc.OpenStream(ctx, req, end), nil
}

// Write sends a message on an open stream of the transport client.
func (c *Client) Write(id transport.StreamID, body []byte, end bool) (bool, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return false, err
	}
	return tc.Write(id, body, end), nil
}

// StreamExists reports whether a stream of the transport client is open.
func (c *Client) StreamExists(id transport.StreamID) (bool, error) {
	tc, err := c.ensureInitialized()
	if err != nil {
		return false, err
	}
	return tc.StreamExists(id), nil
}

func (c *Client) procedure(method string) string {
	return c.service + method
}

// responseDecoder resolves how replies of method are decoded.
func (c *Client) responseDecoder(method string, opts callOptions) (protobuf.DecodeFunc, error) {
	if opts.decode != nil {
		return opts.decode, nil
	}
	return c.registry.ResponseDecoder(c.cfg.ServiceInterface, method)
}
