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

	"github.com/gogo/protobuf/proto"
	"github.com/spf13/cobra"
	"go.uber.org/rpcclient"
	"go.uber.org/rpcclient/rpcerrors"
)

func newCallCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "call METHOD [JSON|-]",
		Short: "Make a unary call",
		Long: `Make a unary call and print the reply.

The request defaults to an empty message. A non-OK reply is printed to
standard error and fails the command.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCall(cmd.Context(), args)
		},
	}
}

func (c *command) runCall(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		argument proto.Message
		err      error
	)
	if len(args) > 1 {
		argument, err = c.readRequest(args[1])
	} else {
		argument, err = newMessage(c.flags.requestType)
	}
	if err != nil {
		return err
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

	reply, code, err := client.SimpleRequest(ctx, args[0], argument, rpcclient.WithResponseDecoder(decode))
	if err != nil {
		return err
	}
	if code != rpcerrors.CodeOK {
		fmt.Fprintf(c.err, "%s returned %v\n", args[0], code)
		_ = c.printReplyTo(reply, c.err)
		return fmt.Errorf("call failed with code %v", code)
	}
	return c.printReply(reply)
}
