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

// Package retry implements a bounded retry loop with a pluggable backoff and
// a predicate selecting the errors that may be retried.
package retry

import (
	"context"
	"time"
)

// Func is a single attempt. attempt counts from zero.
type Func func(ctx context.Context, attempt uint) error

// Do runs f until it succeeds, fails with an error that is not retryable, or
// the configured number of attempts is used up. Attempts run strictly one
// after another. The wait between two attempts is taken from the backoff
// strategy and is abandoned early if ctx ends.
//
// The error of the last attempt is returned unchanged.
func Do(ctx context.Context, f Func, opts ...Option) error {
	options := defaultOptions
	for _, opt := range opts {
		opt.apply(&options)
	}
	obs := options.observer
	boff := options.backoff.Backoff()

	obs.call()
	var err error
	for i := uint(0); i < options.attempts; i++ {
		if err = f(ctx, i); err == nil {
			obs.success(i)
			return nil
		}

		if !options.retryable(err) {
			obs.unretryable(i, err)
			return err
		}

		if i+1 == options.attempts {
			break
		}

		wait := boff.Duration(i)
		if _, ctxWillTimeout := getTimeLeft(ctx, wait); ctxWillTimeout {
			obs.noTime(i, err)
			return err
		}

		obs.retry(i, wait, err)
		if !sleep(ctx, wait) {
			obs.noTime(i, err)
			return err
		}
	}

	obs.maxAttempts(options.attempts, err)
	return err
}

// sleep waits for d, returning false if ctx finished first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// getTimeLeft returns the time left in the context, capped at max, and
// whether the context will time out within max.
func getTimeLeft(ctx context.Context, max time.Duration) (timeleft time.Duration, ctxWillTimeout bool) {
	ctxDeadline, ok := ctx.Deadline()
	if !ok {
		return max, false
	}
	now := time.Now()
	if ctxDeadline.After(now.Add(max)) {
		return max, false
	}
	return ctxDeadline.Sub(now), true
}
