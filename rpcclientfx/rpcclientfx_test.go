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

package rpcclientfx

import (
	"strings"
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/rpcclient/encoding/protobuf"
)

const _yaml = `
rpcclient:
  clients:
    echo:
      service: echo.Echo/
      hostname: ${ECHO_HOST:127.0.0.1:9501}
      headers:
        team: rpc
      retry_attempts: 5
    health:
      service: grpc.health.v1.Health/
      hostname: 127.0.0.1:9502
`

func newProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(
		config.Source(strings.NewReader(yaml)),
		config.Expand(func(string) (string, bool) { return "", false }),
	)
	require.NoError(t, err)
	return provider
}

var _echoDescriptor = &protobuf.ServiceDescriptor{
	Name: "echo.Echo",
	Methods: []protobuf.MethodDescriptor{
		{Name: "Say", NewResponse: func() proto.Message { return &types.StringValue{} }},
	},
}

func TestNewConfig(t *testing.T) {
	res, err := NewConfig(ConfigParams{Provider: newProvider(t, _yaml)})
	require.NoError(t, err)

	require.Len(t, res.Config.Clients, 2)
	echo := res.Config.Clients["echo"]
	assert.Equal(t, "echo.Echo/", echo.Service)
	assert.Equal(t, "127.0.0.1:9501", echo.Hostname)
	assert.Equal(t, 5, echo.Options["retry_attempts"])
	assert.NotContains(t, echo.Options, "service")
	assert.Contains(t, echo.Options, "headers")
}

func TestNewClients(t *testing.T) {
	cfg, err := NewConfig(ConfigParams{Provider: newProvider(t, _yaml)})
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	res, err := NewClients(ClientParams{
		Lifecycle:   lc,
		Config:      cfg.Config,
		Descriptors: []*protobuf.ServiceDescriptor{_echoDescriptor, nil},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"echo", "health"}, res.Clients.Names())

	echo, err := res.Clients.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo.Echo/", echo.Service())
	assert.Equal(t, "127.0.0.1:9501", echo.Hostname())

	_, err = res.Clients.Get("nope")
	assert.EqualError(t, err, `no rpc client named "nope", known clients: [echo health]`)

	lc.RequireStart().RequireStop()
}

func TestNewClientsInvalidConfig(t *testing.T) {
	cfg, err := NewConfig(ConfigParams{Provider: newProvider(t, `
rpcclient:
  clients:
    broken:
      service: echo.Echo/
      hostname: 127.0.0.1:9501
      retry_attempts: 0
`)})
	require.NoError(t, err)

	_, err = NewClients(ClientParams{
		Lifecycle: fxtest.NewLifecycle(t),
		Config:    cfg.Config,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rpc client "broken"`)
	assert.Contains(t, err.Error(), "retry_attempts must be at least 1")
}

func TestModule(t *testing.T) {
	var clients *Clients
	app := fxtest.New(t,
		fx.Provide(func() config.Provider { return newProvider(t, _yaml) }),
		fx.Provide(fx.Annotated{
			Group:  "rpcclientfx",
			Target: func() *protobuf.ServiceDescriptor { return _echoDescriptor },
		}),
		Module,
		fx.Populate(&clients),
	)
	app.RequireStart().RequireStop()

	require.NotNil(t, clients)
	_, err := clients.Get("health")
	assert.NoError(t, err)
}
