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
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/encoding/protobuf"
	"go.uber.org/rpcclient/internal/config"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultRetryAttempts is the number of send attempts of a unary call.
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the wait between send attempts, in
	// milliseconds.
	DefaultRetryInterval = 100
)

// Names of the keys accepted in an option bag that are not decoded from
// configuration files.
const (
	_clientKey           = "client"
	_serviceInterfaceKey = "service_interface"
)

// Config holds the settings of a Client. It is immutable once the Client is
// built.
type Config struct {
	// Service is the package and service prefix of every procedure, e.g.
	// "echo.Echo/".
	Service string `config:"service"`

	// Hostname is the address of the remote host.
	Hostname string `config:"hostname,interpolate"`

	// Client optionally replaces the transport client built by the
	// factory. It must implement transport.Client.
	Client interface{} `config:"-"`

	// ServiceInterface resolves reply types by method name.
	ServiceInterface *protobuf.ServiceDescriptor `config:"-"`

	// Headers are sent with every request unless a call overrides them.
	Headers map[string]string `config:"headers"`

	// RetryAttempts bounds the number of send attempts of a unary call.
	RetryAttempts int `config:"retry_attempts,interpolate"`

	// RetryInterval is the wait between send attempts, in milliseconds.
	RetryInterval int `config:"retry_interval,interpolate"`

	// RecvTimeout bounds how long a call waits for a response. Zero waits
	// forever.
	RecvTimeout time.Duration `config:"recv_timeout,interpolate"`

	// DialTimeout bounds how long starting the transport may take.
	DialTimeout time.Duration `config:"dial_timeout,interpolate"`
}

func defaultConfig() Config {
	return Config{
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
	}
}

func (c Config) retryInterval() time.Duration {
	return time.Duration(c.RetryInterval) * time.Millisecond
}

// override returns the configured transport client, if any.
func (c Config) override() (transport.Client, error) {
	if c.Client == nil {
		return nil, nil
	}
	tc, ok := c.Client.(transport.Client)
	if !ok {
		return nil, newOverrideError(c.Client)
	}
	return tc, nil
}

func (c Config) validate() error {
	var err error
	if c.Hostname == "" {
		err = multierr.Append(err, errors.New("hostname is required"))
	}
	if c.RetryAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("retry_attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("retry_interval must not be negative, got %d", c.RetryInterval))
	}
	if c.RecvTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("recv_timeout must not be negative, got %v", c.RecvTimeout))
	}
	if c.DialTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("dial_timeout must not be negative, got %v", c.DialTimeout))
	}
	if _, oerr := c.override(); oerr != nil {
		err = multierr.Append(err, oerr)
	}
	if err != nil {
		return &ConfigError{err: err}
	}
	return nil
}

// decodeConfig fills cfg from an option bag. The client and
// service_interface keys are taken as they are; every other key is decoded
// by name and string values of scalar keys may reference environment
// variables.
func decodeConfig(cfg *Config, options map[string]interface{}, lookup func(string) (string, bool)) error {
	attrs := config.AttributeMap(options).Clone()

	var err error
	if v, ok := attrs.PopValue(_clientKey); ok {
		cfg.Client = v
	}
	if v, ok := attrs.PopValue(_serviceInterfaceKey); ok && v != nil {
		desc, isDesc := v.(*protobuf.ServiceDescriptor)
		if !isDesc {
			err = multierr.Append(err, fmt.Errorf("%s must be a *protobuf.ServiceDescriptor, got %T", _serviceInterfaceKey, v))
		}
		cfg.ServiceInterface = desc
	}
	if derr := attrs.Decode(cfg, lookup); derr != nil {
		err = multierr.Append(err, derr)
	}
	if err != nil {
		return &ConfigError{err: err}
	}
	return nil
}

// LoadConfig reads a YAML document into a Config. Missing keys keep their
// defaults and scalar values may reference environment variables:
//
//	service: echo.Echo/
//	hostname: ${ECHO_HOST:127.0.0.1:9501}
//	headers:
//	  team: rpc
//	retry_attempts: 3
//	retry_interval: 100
//	recv_timeout: 2s
func LoadConfig(r io.Reader) (Config, error) {
	cfg := defaultConfig()

	b, err := ioutil.ReadAll(r)
	if err != nil {
		return cfg, err
	}

	var options map[string]interface{}
	if err := yaml.Unmarshal(b, &options); err != nil {
		return cfg, &ConfigError{err: err}
	}
	for _, key := range []string{_clientKey, _serviceInterfaceKey} {
		if _, ok := options[key]; ok {
			return cfg, &ConfigError{err: fmt.Errorf("%s cannot be set from a configuration file", key)}
		}
	}

	if err := decodeConfig(&cfg, options, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}
