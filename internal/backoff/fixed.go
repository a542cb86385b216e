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

// Package backoff provides backoff strategies for retry loops.
package backoff

import (
	"fmt"
	"time"

	"go.uber.org/rpcclient/api/backoff"
)

var (
	_ backoff.Strategy = (*Fixed)(nil)
	_ backoff.Backoff  = (*Fixed)(nil)
)

// None waits zero time between attempts.
var None = &Fixed{}

// Fixed waits the same interval between every pair of attempts. It holds no
// state and serves as its own Backoff.
type Fixed struct {
	interval time.Duration
}

// NewFixed returns a Fixed strategy waiting interval between attempts.
func NewFixed(interval time.Duration) (*Fixed, error) {
	if interval < 0 {
		return nil, fmt.Errorf("invalid fixed backoff interval %v, need greater than or equal to zero", interval)
	}
	return &Fixed{interval: interval}, nil
}

// Backoff implements backoff.Strategy.
func (f *Fixed) Backoff() backoff.Backoff { return f }

// Duration implements backoff.Backoff. The attempt count is ignored.
func (f *Fixed) Duration(uint) time.Duration { return f.interval }

// Interval returns the configured wait.
func (f *Fixed) Interval() time.Duration { return f.interval }
