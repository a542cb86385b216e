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

package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mapResolver(m map[string]string) VariableResolver {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestParseSuccess(t *testing.T) {
	tests := []struct {
		give string
		want String
	}{
		{
			give: "foo",
			want: String{literal("foo")},
		},
		{
			give: "foo ${bar} baz",
			want: String{literal("foo "), variable{Name: "bar"}, literal(" baz")},
		},
		{
			give: "foo $ {bar} baz",
			want: String{literal("foo $ {bar} baz")},
		},
		{
			give: "foo ${bar:}",
			want: String{literal("foo "), variable{Name: "bar", HasDefault: true}},
		},
		{
			give: "${RPC_HOST:127.0.0.1:9501}",
			want: String{variable{Name: "RPC_HOST", Default: "127.0.0.1:9501", HasDefault: true}},
		},
		{
			give: `foo \${bar:42} baz`,
			want: String{literal("foo ${bar:42} baz")},
		},
		{
			give: "$foo${bar}",
			want: String{literal("$foo"), variable{Name: "bar"}},
		},
		{
			give: "foo${b-a-r}",
			want: String{literal("foo"), variable{Name: "b-a-r"}},
		},
		{
			give: "a ${b:hello world} c",
			want: String{literal("a "), variable{Name: "b", HasDefault: true, Default: "hello world"}, literal(" c")},
		},
		{
			give: "foo $${bar}",
			want: String{literal("foo $${bar}")},
		},
		{
			give: "",
		},
	}

	for _, tt := range tests {
		out, err := Parse(tt.give)
		assert.NoError(t, err, tt.give)
		assert.Equal(t, tt.want, out, tt.give)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []string{
		"${foo",
		"${foo.}",
		"${foo-}",
		"${foo--bar}",
		"${}",
	}

	for _, tt := range tests {
		_, err := Parse(tt)
		assert.Error(t, err, tt)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		give    string
		vars    map[string]string
		want    string
		wantErr string
	}{
		{give: "foo bar", want: "foo bar"},
		{give: "foo${bar}", vars: map[string]string{"bar": "baz"}, want: "foobaz"},
		{give: "${host:localhost}:${port:9501}", vars: map[string]string{"port": "80"}, want: "localhost:80"},
		{give: "${missing}", wantErr: `variable "missing" does not have a value or a default`},
	}

	for _, tt := range tests {
		s, err := Parse(tt.give)
		if !assert.NoError(t, err, tt.give) {
			continue
		}
		got, err := s.Render(mapResolver(tt.vars))
		if tt.wantErr != "" {
			assert.EqualError(t, err, tt.wantErr)
			continue
		}
		if assert.NoError(t, err) {
			assert.Equal(t, tt.want, got)
		}
	}
}
