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

package retry

import (
	"go.uber.org/rpcclient/api/backoff"
	ibackoff "go.uber.org/rpcclient/internal/backoff"
)

var defaultOptions = options{
	attempts:  1,
	backoff:   ibackoff.None,
	retryable: func(error) bool { return true },
}

type options struct {
	// attempts is the total number of times the function runs, including
	// the first try.
	attempts uint

	// backoff decides how long to wait after each failed attempt.
	backoff backoff.Strategy

	// retryable reports whether a failed attempt may be tried again.
	retryable func(error) bool

	observer *Observer
}

// Option customizes a retry loop.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) { f(opts) }

// Attempts is the total number of times the function will be invoked,
// counting the first invocation. Values below one are treated as one.
//
// Defaults to 1.
func Attempts(n uint) Option {
	return optionFunc(func(opts *options) {
		if n == 0 {
			n = 1
		}
		opts.attempts = n
	})
}

// BackoffStrategy sets the wait applied after each failed attempt.
//
// Defaults to no wait.
func BackoffStrategy(strategy backoff.Strategy) Option {
	return optionFunc(func(opts *options) {
		if strategy != nil {
			opts.backoff = strategy
		}
	})
}

// Retryable restricts retries to errors for which f returns true. Any other
// error ends the loop immediately.
//
// Defaults to retrying every error.
func Retryable(f func(error) bool) Option {
	return optionFunc(func(opts *options) {
		if f != nil {
			opts.retryable = f
		}
	})
}

// WithObserver records retries with the given Observer.
func WithObserver(o *Observer) Option {
	return optionFunc(func(opts *options) {
		opts.observer = o
	})
}
