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
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"time"

	"github.com/gogo/protobuf/proto"
	_ "github.com/gogo/protobuf/types" // registers the well-known types
	"github.com/spf13/cobra"
	"go.uber.org/rpcclient"
	"go.uber.org/rpcclient/encoding/protobuf"
	"go.uber.org/zap"
)

const _defaultMessageType = "google.protobuf.Struct"

type flags struct {
	configFile   string
	service      string
	hostname     string
	headers      map[string]string
	recvTimeout  time.Duration
	dialTimeout  time.Duration
	requestType  string
	responseType string
	verbose      bool
}

// command holds what subcommands share.
type command struct {
	flags flags
	in    io.Reader
	out   io.Writer
	err   io.Writer

	// extra options applied after the flags, used by tests
	clientOptions []rpcclient.Option
}

func newRootCommand(in io.Reader, out, errOut io.Writer, opts ...rpcclient.Option) *cobra.Command {
	c := &command{in: in, out: out, err: errOut, clientOptions: opts}

	root := &cobra.Command{
		Use:           "rpccall",
		Short:         "Call RPC services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.configFile, "config", "c", "", "YAML client configuration")
	pf.StringVar(&c.flags.service, "service", "", "service prefix of the procedures, e.g. echo.Echo/")
	pf.StringVar(&c.flags.hostname, "hostname", "", "address of the host")
	pf.StringToStringVarP(&c.flags.headers, "header", "H", nil, "request header as key=value, may be repeated")
	pf.DurationVar(&c.flags.recvTimeout, "timeout", 0, "how long to wait for each response")
	pf.DurationVar(&c.flags.dialTimeout, "dial-timeout", 0, "how long to wait for the connection")
	pf.StringVar(&c.flags.requestType, "request-type", _defaultMessageType, "fully qualified request message type")
	pf.StringVar(&c.flags.responseType, "response-type", _defaultMessageType, "fully qualified response message type")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "log client activity")

	root.AddCommand(newCallCommand(c), newStreamCommand(c))
	return root
}

// newClient builds a client from the configuration file, if any, and the
// flags, which take precedence.
func (c *command) newClient() (*rpcclient.Client, error) {
	cfg := rpcclient.Config{
		RetryAttempts: rpcclient.DefaultRetryAttempts,
		RetryInterval: rpcclient.DefaultRetryInterval,
	}
	if c.flags.configFile != "" {
		f, err := os.Open(c.flags.configFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cfg, err = rpcclient.LoadConfig(f); err != nil {
			return nil, err
		}
	}
	if c.flags.service != "" {
		cfg.Service = c.flags.service
	}
	if c.flags.hostname != "" {
		cfg.Hostname = c.flags.hostname
	}
	if c.flags.recvTimeout > 0 {
		cfg.RecvTimeout = c.flags.recvTimeout
	}
	if c.flags.dialTimeout > 0 {
		cfg.DialTimeout = c.flags.dialTimeout
	}
	if len(c.flags.headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers)+len(c.flags.headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		for k, v := range c.flags.headers {
			headers[k] = v
		}
		cfg.Headers = headers
	}

	logger := zap.NewNop()
	if c.flags.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	opts := append([]rpcclient.Option{rpcclient.WithLogger(logger)}, c.clientOptions...)
	return rpcclient.NewFromConfig(cfg, opts...)
}

func (c *command) responseDecoder() (protobuf.DecodeFunc, error) {
	if _, err := newMessage(c.flags.responseType); err != nil {
		return nil, err
	}
	name := c.flags.responseType
	return protobuf.NewDecoder(func() proto.Message {
		msg, _ := newMessage(name)
		return msg
	}), nil
}

// readRequest parses a JSON request. "-" reads it from standard input.
func (c *command) readRequest(arg string) (proto.Message, error) {
	msg, err := newMessage(c.flags.requestType)
	if err != nil {
		return nil, err
	}

	body := []byte(arg)
	if arg == "-" {
		if body, err = ioutil.ReadAll(c.in); err != nil {
			return nil, err
		}
	}
	if err := protobuf.UnmarshalJSON(body, msg); err != nil {
		return nil, fmt.Errorf("cannot parse %s from %q: %v", c.flags.requestType, body, err)
	}
	return msg, nil
}

func (c *command) printReply(reply proto.Message) error {
	return c.printReplyTo(reply, c.out)
}

func (c *command) printReplyTo(reply proto.Message, w io.Writer) error {
	if reply == nil {
		return nil
	}
	body, err := protobuf.MarshalJSON(reply)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(body))
	return err
}

// newMessage builds an empty message of a registered type.
func newMessage(name string) (proto.Message, error) {
	t := proto.MessageType(name)
	if t == nil {
		return nil, fmt.Errorf("unknown message type %q", name)
	}
	msg, ok := reflect.New(t.Elem()).Interface().(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", name)
	}
	return msg, nil
}
