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

// Package lifecycle provides an at-most-once start and stop controller for
// objects that own a connection.
package lifecycle

import (
	"go.uber.org/atomic"
)

// State is the position of an object within its lifecycle.
type State int32

const (
	// Idle means neither Start nor Stop has been called.
	Idle State = iota
	// Starting means the start function is running.
	Starting
	// Running means the start function succeeded.
	Running
	// Stopping means the stop function is running.
	Stopping
	// Stopped means the stop function has returned, or Stop was called
	// before Start.
	Stopped
	// Errored means the start or stop function failed. An errored object
	// cannot be started again.
	Errored
)

var _stateNames = map[State]string{
	Idle:     "idle",
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
	Stopped:  "stopped",
	Errored:  "errored",
}

func (s State) String() string {
	if name, ok := _stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Once moves monotonically from Idle to Stopped or Errored, running the
// start and stop functions at most once each. It is safe for concurrent
// use.
//
//  1. Start blocks until the state is Running or later.
//  2. Stop blocks until the state is Stopped or Errored.
//  3. Stop before Start skips the start function entirely.
//  4. Repeated calls return the error of the first call.
type Once struct {
	startCh chan struct{}
	stopCh  chan struct{}
	err     atomic.Error
	state   atomic.Int32
}

// NewOnce returns a lifecycle controller in the Idle state.
func NewOnce() *Once {
	return &Once{
		startCh: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Start runs f if this is the first call to Start and Stop has not been
// called yet.
func (o *Once) Start(f func() error) error {
	if o.state.CompareAndSwap(int32(Idle), int32(Starting)) {
		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.err.Store(err)
			o.state.Store(int32(Errored))
			close(o.stopCh)
		} else {
			o.state.Store(int32(Running))
		}
		close(o.startCh)
		return err
	}

	<-o.startCh
	return o.err.Load()
}

// Stop runs f if the object is Running. Stopping an Idle object moves it
// straight to Stopped without running f.
func (o *Once) Stop(f func() error) error {
	if o.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
		close(o.startCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh

	if o.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.err.Store(err)
			o.state.Store(int32(Errored))
		} else {
			o.state.Store(int32(Stopped))
		}
		close(o.stopCh)
		return err
	}

	<-o.stopCh
	return o.err.Load()
}

// Started returns a channel that closes once Start has finished or Stop
// pre-empted it.
func (o *Once) Started() <-chan struct{} { return o.startCh }

// Stopped returns a channel that closes once the object is Stopped or
// Errored.
func (o *Once) Stopped() <-chan struct{} { return o.stopCh }

// State returns the current state. The object may have moved on by the
// time the caller inspects the result.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsRunning reports whether the object is in the Running state.
func (o *Once) IsRunning() bool {
	return o.State() == Running
}
