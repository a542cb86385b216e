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

package protobuf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogo/protobuf/proto"
)

// DecodeFunc turns a serialized reply into a message.
type DecodeFunc func(body []byte) (proto.Message, error)

// NewDecoder returns a DecodeFunc that decodes into a fresh message built by
// newMessage on every call.
func NewDecoder(newMessage func() proto.Message) DecodeFunc {
	return func(body []byte) (proto.Message, error) {
		msg := newMessage()
		if err := Unmarshal(body, msg); err != nil {
			return nil, err
		}
		return msg, nil
	}
}

// MethodDescriptor describes one method of a service.
type MethodDescriptor struct {
	// Name of the method, without the service prefix.
	Name string

	// NewResponse builds an empty reply message.
	NewResponse func() proto.Message

	ClientStreams bool
	ServerStreams bool
}

// ServiceDescriptor describes a remote service.
type ServiceDescriptor struct {
	// Fully qualified service name, "package.Service".
	Name string

	Methods []MethodDescriptor
}

// Method looks up a method by name.
func (d *ServiceDescriptor) Method(name string) (MethodDescriptor, bool) {
	if d == nil {
		return MethodDescriptor{}, false
	}
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodDescriptor{}, false
}

// ErrNoServiceDescriptor is returned when a decoder is requested without a
// ServiceDescriptor.
var ErrNoServiceDescriptor = errors.New("no service descriptor configured")

// Registry resolves the decoder for the reply of a method.
type Registry interface {
	ResponseDecoder(desc *ServiceDescriptor, method string) (DecodeFunc, error)
}

// NewRegistry builds a Registry that caches the decoders it resolves.
func NewRegistry() Registry {
	return &registry{decoders: make(map[methodKey]DecodeFunc)}
}

type methodKey struct {
	service string
	method  string
}

type registry struct {
	mu       sync.RWMutex
	decoders map[methodKey]DecodeFunc
}

func (r *registry) ResponseDecoder(desc *ServiceDescriptor, method string) (DecodeFunc, error) {
	if desc == nil {
		return nil, ErrNoServiceDescriptor
	}
	key := methodKey{service: desc.Name, method: method}

	r.mu.RLock()
	decode, ok := r.decoders[key]
	r.mu.RUnlock()
	if ok {
		return decode, nil
	}

	m, ok := desc.Method(method)
	if !ok {
		return nil, fmt.Errorf("method %q is not defined by service %q", method, desc.Name)
	}
	if m.NewResponse == nil {
		return nil, fmt.Errorf("method %q of service %q has no response type", method, desc.Name)
	}
	decode = NewDecoder(m.NewResponse)

	r.mu.Lock()
	r.decoders[key] = decode
	r.mu.Unlock()
	return decode, nil
}
