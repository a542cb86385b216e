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

// Package testtime stretches the durations tests wait on. Set
// TEST_TIME_SCALE to a factor above 1 on slow machines.
package testtime

import (
	"os"
	"strconv"
	"time"
)

// Durations dilated by TEST_TIME_SCALE.
var (
	Millisecond = time.Millisecond
	Second      = time.Second
)

func init() {
	v, ok := os.LookupEnv("TEST_TIME_SCALE")
	if !ok {
		return
	}
	factor, err := strconv.ParseFloat(v, 64)
	if err != nil || factor <= 0 {
		panic("testtime: TEST_TIME_SCALE must be a positive number, got " + strconv.Quote(v))
	}
	Millisecond = time.Duration(factor * float64(time.Millisecond))
	Second = time.Duration(factor * float64(time.Second))
}
