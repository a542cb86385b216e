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

// Package config decodes loosely typed option bags into configuration
// structs.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/uber-go/mapdecode"
	"go.uber.org/rpcclient/internal/interpolate"
)

// Fields are named by the `config` tag. A field whose tag carries the
// interpolate option has its string value rendered against the resolver
// passed to Decode:
//
//	Hostname string `config:"hostname,interpolate"`
const (
	_tagName     = "config"
	_interpolate = "interpolate"
)

// AttributeMap is a loosely typed option bag, as accepted by constructors
// that take a map of named options.
type AttributeMap map[string]interface{}

// Clone returns a shallow copy of the map.
func (m AttributeMap) Clone() AttributeMap {
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PopValue removes the named key and returns its raw value.
func (m AttributeMap) PopValue(name string) (v interface{}, ok bool) {
	v, ok = m[name]
	if ok {
		delete(m, name)
	}
	return v, ok
}

// Decode decodes the map into dst. Unknown keys are errors. Interpolated
// fields are left as they are when resolve is nil.
func (m AttributeMap) Decode(dst interface{}, resolve interpolate.VariableResolver) error {
	opts := []mapdecode.Option{mapdecode.TagName(_tagName)}
	if resolve != nil {
		opts = append(opts, mapdecode.FieldHook(interpolateHook(resolve)))
	}
	return mapdecode.Decode(dst, map[string]interface{}(m), opts...)
}

func interpolateHook(resolve interpolate.VariableResolver) mapdecode.FieldHookFunc {
	return func(field reflect.StructField, from reflect.Value) (reflect.Value, error) {
		if !hasOption(field.Tag.Get(_tagName), _interpolate) {
			return from, nil
		}

		// Integers and durations may also arrive already typed.
		raw, ok := from.Interface().(string)
		if !ok {
			return from, nil
		}

		s, err := interpolate.Parse(raw)
		if err != nil {
			return from, fmt.Errorf("failed to parse %q for interpolation: %v", raw, err)
		}
		rendered, err := s.Render(resolve)
		if err != nil {
			return from, fmt.Errorf("failed to render %q with environment variables: %v", raw, err)
		}
		return reflect.ValueOf(rendered), nil
	}
}

func hasOption(tag, option string) bool {
	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		if p == option {
			return true
		}
	}
	return false
}
