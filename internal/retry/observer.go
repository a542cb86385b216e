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
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const (
	_reasonTag         = "reason"
	_reasonUnretryable = "unretryable"
	_reasonNoTime      = "no_time"
	_reasonMaxAttempts = "max_attempts"
)

// Observer records the progress of retry loops. A nil Observer records
// nothing.
type Observer struct {
	logger *zap.Logger

	callCounter             tally.Counter
	successCounter          tally.Counter
	unretryableErrorCounter tally.Counter
	noTimeErrorCounter      tally.Counter
	maxAttemptsErrorCounter tally.Counter
}

// NewObserver builds an Observer reporting to the given logger and scope.
// Nil arguments fall back to no-op implementations.
func NewObserver(logger *zap.Logger, scope tally.Scope) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = tally.NoopScope
	}
	failures := func(reason string) tally.Counter {
		return scope.Tagged(map[string]string{_reasonTag: reason}).Counter("retry_failures")
	}
	return &Observer{
		logger:                  logger,
		callCounter:             scope.Counter("retry_calls"),
		successCounter:          scope.Counter("retry_successes"),
		unretryableErrorCounter: failures(_reasonUnretryable),
		noTimeErrorCounter:      failures(_reasonNoTime),
		maxAttemptsErrorCounter: failures(_reasonMaxAttempts),
	}
}

func (o *Observer) call() {
	if o == nil {
		return
	}
	o.callCounter.Inc(1)
}

func (o *Observer) success(attempt uint) {
	if o == nil {
		return
	}
	o.successCounter.Inc(1)
	if attempt > 0 {
		o.logger.Info("succeeded after retrying", zap.Uint("attempt", attempt+1))
	}
}

func (o *Observer) retry(attempt uint, wait time.Duration, err error) {
	if o == nil {
		return
	}
	o.logger.Info("attempt failed, retrying",
		zap.Uint("attempt", attempt+1),
		zap.Duration("backoff", wait),
		zap.Error(err))
}

func (o *Observer) unretryable(attempt uint, err error) {
	if o == nil {
		return
	}
	o.unretryableErrorCounter.Inc(1)
	o.logger.Debug("attempt failed with unretryable error",
		zap.Uint("attempt", attempt+1),
		zap.Error(err))
}

func (o *Observer) noTime(attempt uint, err error) {
	if o == nil {
		return
	}
	o.noTimeErrorCounter.Inc(1)
	o.logger.Warn("no time left to retry",
		zap.Uint("attempt", attempt+1),
		zap.Error(err))
}

func (o *Observer) maxAttempts(attempts uint, err error) {
	if o == nil {
		return
	}
	o.maxAttemptsErrorCounter.Inc(1)
	o.logger.Warn("retry attempts exhausted",
		zap.Uint("attempts", attempts),
		zap.Error(err))
}
