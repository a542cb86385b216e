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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMapPopValue(t *testing.T) {
	m := AttributeMap{"client": 42, "headers": map[string]string{"a": "b"}}
	orig := m.Clone()

	v, ok := m.PopValue("client")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = m.PopValue("client")
	assert.False(t, ok, "value must be removed")
	assert.Equal(t, AttributeMap{"headers": map[string]string{"a": "b"}}, m)
	assert.Len(t, orig, 2, "clone must not share storage")
}

func TestAttributeMapDecode(t *testing.T) {
	type attrs struct {
		Attempts int               `config:"retry_attempts"`
		Headers  map[string]string `config:"headers"`
	}

	tests := []struct {
		desc    string
		give    AttributeMap
		want    attrs
		wantErr string
	}{
		{
			desc: "all keys",
			give: AttributeMap{"retry_attempts": 5, "headers": map[string]interface{}{"a": "b"}},
			want: attrs{Attempts: 5, Headers: map[string]string{"a": "b"}},
		},
		{
			desc: "string number",
			give: AttributeMap{"retry_attempts": "2"},
			want: attrs{Attempts: 2},
		},
		{
			desc:    "unknown key",
			give:    AttributeMap{"retries": 5},
			wantErr: "retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var got attrs
			err := tt.give.Decode(&got, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributeMapInterpolate(t *testing.T) {
	type clientConfig struct {
		Hostname      string            `config:"hostname,interpolate"`
		RetryAttempts int               `config:"retry_attempts,interpolate"`
		RecvTimeout   time.Duration     `config:"recv_timeout,interpolate"`
		Headers       map[string]string `config:"headers,interpolate"`
		Service       string            `config:"service"`
	}

	tests := []struct {
		desc string
		give AttributeMap
		env  map[string]string

		want    clientConfig
		wantErr string
	}{
		{
			desc:    "bad string",
			give:    AttributeMap{"hostname": "${RPC_HOST:localhost"},
			wantErr: `failed to parse "${RPC_HOST:localhost" for interpolation`,
		},
		{
			desc:    "missing variable",
			give:    AttributeMap{"hostname": "${RPC_HOST}"},
			wantErr: `failed to render "${RPC_HOST}" with environment variables`,
		},
		{
			desc: "string",
			give: AttributeMap{"hostname": "${RPC_HOST:127.0.0.1}:9501"},
			env:  map[string]string{"RPC_HOST": "10.0.0.1"},
			want: clientConfig{Hostname: "10.0.0.1:9501"},
		},
		{
			desc: "string default",
			give: AttributeMap{"hostname": "${RPC_HOST:127.0.0.1}:9501"},
			want: clientConfig{Hostname: "127.0.0.1:9501"},
		},
		{
			desc: "int",
			give: AttributeMap{"retry_attempts": "${ATTEMPTS:3}"},
			env:  map[string]string{"ATTEMPTS": "5"},
			want: clientConfig{RetryAttempts: 5},
		},
		{
			desc: "int literal",
			give: AttributeMap{"retry_attempts": 4},
			want: clientConfig{RetryAttempts: 4},
		},
		{
			desc: "duration",
			give: AttributeMap{"recv_timeout": "5${UNIT:s}"},
			env:  map[string]string{"UNIT": "m"},
			want: clientConfig{RecvTimeout: 5 * time.Minute},
		},
		{
			desc: "field without the option",
			give: AttributeMap{"service": "${SERVICE}"},
			env:  map[string]string{"SERVICE": "echo.Echo/"},
			want: clientConfig{Service: "${SERVICE}"},
		},
		{
			desc: "maps are not interpolated",
			give: AttributeMap{
				"headers": map[string]interface{}{"team": "${TEAM}"},
			},
			env:  map[string]string{"TEAM": "rpc"},
			want: clientConfig{Headers: map[string]string{"team": "${TEAM}"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var got clientConfig
			err := tt.give.Decode(&got, func(name string) (string, bool) {
				v, ok := tt.env[name]
				return v, ok
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributeMapNilResolver(t *testing.T) {
	type hostConfig struct {
		Hostname string `config:"hostname,interpolate"`
	}

	var got hostConfig
	require.NoError(t, AttributeMap{"hostname": "${RPC_HOST}"}.Decode(&got, nil))
	assert.Equal(t, "${RPC_HOST}", got.Hostname)
}
