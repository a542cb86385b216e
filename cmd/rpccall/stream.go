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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/gogo/protobuf/proto"
	"github.com/spf13/cobra"
	"go.uber.org/rpcclient"
	"go.uber.org/rpcclient/rpcerrors"
)

const (
	_modeBidi   = "bidi"
	_modeClient = "client"
	_modeServer = "server"
)

func newStreamCommand(c *command) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "stream METHOD [JSON...]",
		Short: "Make a streaming call",
		Long: `Make a streaming call.

Every JSON argument is sent as one message, then the stream is half-closed
and replies are printed until the server ends the stream. Server-streaming
calls take exactly one message.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStream(cmd.Context(), mode, args[0], args[1:])
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", _modeBidi, "stream kind: bidi, client or server")
	return cmd
}

// sender and receiver are satisfied by every streaming call kind.
type sender interface {
	Send(proto.Message) error
}

type receiver interface {
	Recv() (proto.Message, rpcerrors.Code, error)
}

func (c *command) runStream(ctx context.Context, mode, method string, requests []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if mode == _modeServer && len(requests) != 1 {
		return fmt.Errorf("server streams take exactly one message, got %d", len(requests))
	}

	messages := make([]proto.Message, 0, len(requests))
	for _, r := range requests {
		msg, err := c.readRequest(r)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	decode, err := c.responseDecoder()
	if err != nil {
		return err
	}

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	switch mode {
	case _modeBidi:
		call, err := client.BidiRequest(ctx, method, decode)
		if err != nil {
			return err
		}
		if err := sendAll(call, messages, call.End); err != nil {
			return err
		}
		return c.recvAll(call, false)

	case _modeClient:
		call, err := client.ClientStreamRequest(ctx, method, decode)
		if err != nil {
			return err
		}
		if err := sendAll(call, messages, call.End); err != nil {
			return err
		}
		return c.recvAll(call, true)

	case _modeServer:
		call, err := client.ServerStreamRequest(ctx, method, decode)
		if err != nil {
			return err
		}
		if err := call.Send(messages[0]); err != nil {
			return err
		}
		return c.recvAll(call, false)

	default:
		return fmt.Errorf("unknown stream mode %q", mode)
	}
}

func sendAll(s sender, messages []proto.Message, end func() error) error {
	for _, msg := range messages {
		if err := s.Send(msg); err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		// the stream opens with its first message
		return nil
	}
	return end()
}

// recvAll prints replies until the stream ends. A single reply is expected
// when once is set.
func (c *command) recvAll(r receiver, once bool) error {
	for {
		reply, code, err := r.Recv()
		if err == io.EOF {
			return nil
		}
		if err == rpcclient.ErrStreamNotOpen {
			return nil
		}
		if err != nil {
			return err
		}
		if code != rpcerrors.CodeOK {
			fmt.Fprintf(c.err, "stream ended with %v\n", code)
			_ = c.printReplyTo(reply, c.err)
			return fmt.Errorf("stream failed with code %v", code)
		}
		if err := c.printReply(reply); err != nil {
			return err
		}
		if once {
			return nil
		}
	}
}
