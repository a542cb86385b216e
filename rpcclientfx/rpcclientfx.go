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

// Package rpcclientfx provides rpcclient.Clients to an fx application.
//
// Clients are configured under the rpcclient.clients key, one entry per
// client name:
//
//	rpcclient:
//	  clients:
//	    echo:
//	      service: echo.Echo/
//	      hostname: ${ECHO_HOST:127.0.0.1:9501}
//	      retry_attempts: 3
//	      recv_timeout: 2s
//
// Variables such as ${ECHO_HOST} are expanded when the config.Provider is
// built with config.Expand. Keys other than service and hostname are passed to
// rpcclient.NewFromOptions. Service descriptors provided to the rpcclientfx
// value group are attached to the clients of the matching service.
package rpcclientfx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/rpcclient"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
	"go.uber.org/zap"
)

const _configurationKey = "rpcclient.clients"

// Module provides a *Clients built from configuration.
var Module = fx.Options(
	fx.Provide(NewConfig),
	fx.Provide(NewClients),
)

// Config is the configuration of every client, keyed by client name.
type Config struct {
	Clients map[string]ClientConfig `yaml:",inline"`
}

// ClientConfig configures a single client.
type ClientConfig struct {
	Service  string                 `yaml:"service"`
	Hostname string                 `yaml:"hostname"`
	Options  map[string]interface{} `yaml:",inline"`
}

// ConfigParams defines the dependencies of NewConfig.
type ConfigParams struct {
	fx.In

	Provider config.Provider
}

// ConfigResult defines the values produced by NewConfig.
type ConfigResult struct {
	fx.Out

	Config Config
}

// NewConfig reads the client configuration.
func NewConfig(p ConfigParams) (ConfigResult, error) {
	var cfg Config
	if err := p.Provider.Get(_configurationKey).Populate(&cfg); err != nil {
		return ConfigResult{}, err
	}
	return ConfigResult{Config: cfg}, nil
}

// ClientParams defines the dependencies of NewClients.
type ClientParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Config      Config
	Descriptors []*protobuf.ServiceDescriptor `group:"rpcclientfx"`
	Factory     transport.Factory             `optional:"true"`
	Logger      *zap.Logger                   `optional:"true"`
	Scope       tally.Scope                   `optional:"true"`
	Tracer      opentracing.Tracer            `optional:"true"`
}

// ClientResult defines the values produced by NewClients.
type ClientResult struct {
	fx.Out

	Clients *Clients
}

// Clients holds the configured clients by name.
type Clients struct {
	clients map[string]*rpcclient.Client
}

// Get returns the client with the given name.
func (c *Clients) Get(name string) (*rpcclient.Client, error) {
	client, ok := c.clients[name]
	if !ok {
		return nil, fmt.Errorf("no rpc client named %q, known clients: %v", name, c.Names())
	}
	return client, nil
}

// Names returns the sorted names of all clients.
func (c *Clients) Names() []string {
	names := make([]string, 0, len(c.clients))
	for name := range c.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClients builds a client per configured name. Clients connect lazily
// on their first call and are closed when the application stops.
func NewClients(p ClientParams) (ClientResult, error) {
	descriptors := make(map[string]*protobuf.ServiceDescriptor, len(p.Descriptors))
	for _, desc := range p.Descriptors {
		if desc != nil {
			descriptors[desc.Name] = desc
		}
	}

	clients := &Clients{clients: make(map[string]*rpcclient.Client, len(p.Config.Clients))}
	var err error
	for name, c := range p.Config.Clients {
		opts := []rpcclient.Option{
			rpcclient.WithFactory(p.Factory),
			rpcclient.WithLogger(namedLogger(p.Logger, name)),
			rpcclient.WithTally(p.Scope),
			rpcclient.WithTracer(p.Tracer),
		}
		if desc, ok := descriptors[strings.TrimSuffix(c.Service, "/")]; ok {
			opts = append(opts, rpcclient.WithServiceInterface(desc))
		}

		client, cerr := rpcclient.NewFromOptions(c.Service, c.Hostname, c.Options, opts...)
		if cerr != nil {
			err = multierr.Append(err, fmt.Errorf("rpc client %q: %v", name, cerr))
			continue
		}
		clients.clients[name] = client
	}
	if err != nil {
		_ = closeAll(clients)
		return ClientResult{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closeAll(clients)
		},
	})
	return ClientResult{Clients: clients}, nil
}

func namedLogger(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(zap.String("client", name))
}

func closeAll(clients *Clients) error {
	var err error
	for _, client := range clients.clients {
		err = multierr.Append(err, client.Close())
	}
	return err
}
