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

package rpcclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	"github.com/golang/mock/gomock"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/rpcclient/api/transport"
	"go.uber.org/rpcclient/api/transport/transporttest"
	"go.uber.org/rpcclient/encoding/protobuf"
	"go.uber.org/rpcclient/internal/testtime"
	"go.uber.org/rpcclient/rpcerrors"
)

func TestSimpleRequest(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	argument := &types.StringValue{Value: "hello"}
	tc := transporttest.NewMockClient(mockCtrl)
	gomock.InOrder(
		tc.EXPECT().IsRunning().Return(false),
		tc.EXPECT().Start().Return(true),
		tc.EXPECT().Send(gomock.Any(), transporttest.NewRequestMatcher(t, &transport.Request{
			Procedure: "echo.Echo/Say",
			Body:      mustMarshal(t, argument),
		})).Return(transport.StreamID(7)),
		tc.EXPECT().Recv(gomock.Any(), transport.StreamID(7)).
			Return(okResponse(t, 7, &types.StringValue{Value: "hi"}), nil),
		tc.EXPECT().Close(true).Return(true),
	)

	client := newTestClient(t, WithTransport(tc))
	reply, code, err := client.SimpleRequest(context.Background(), "Say", argument)
	require.NoError(t, err)
	assert.Equal(t, rpcerrors.CodeOK, code)
	assert.True(t, proto.Equal(&types.StringValue{Value: "hi"}, reply), "got %v", reply)

	require.NoError(t, client.Close())
}

func TestSimpleRequestNonOKStatus(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(5))
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(5)).
		Return(statusResponse(5, 13, "internal server error"), nil)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc))
	defer client.Close()

	reply, code, err := client.SimpleRequest(context.Background(), "Say", &types.StringValue{})
	require.NoError(t, err, "a non-OK status is not an error at this level")
	assert.Equal(t, rpcerrors.CodeInternal, code)
	assert.Equal(t, &types.StringValue{Value: "internal server error"}, reply)
}

func TestDoSend(t *testing.T) {
	tests := []struct {
		msg       string
		response  func(t *testing.T) *transport.Response
		wantReply proto.Message
		wantErr   *RequestError
	}{
		{
			msg: "ok",
			response: func(t *testing.T) *transport.Response {
				return okResponse(t, 5, &types.StringValue{Value: "hi"})
			},
			wantReply: &types.StringValue{Value: "hi"},
		},
		{
			msg: "internal error",
			response: func(*testing.T) *transport.Response {
				return statusResponse(5, 13, "internal server error")
			},
			wantErr: &RequestError{
				Procedure: "echo.Echo/Say",
				Reply:     &types.StringValue{Value: "internal server error"},
				Code:      rpcerrors.CodeInternal,
			},
		},
		{
			msg: "not found",
			response: func(*testing.T) *transport.Response {
				return statusResponse(5, 5, "no such echo")
			},
			wantErr: &RequestError{
				Procedure: "echo.Echo/Say",
				Reply:     &types.StringValue{Value: "no such echo"},
				Code:      rpcerrors.CodeNotFound,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			defer mockCtrl.Finish()

			tc := transporttest.NewMockClient(mockCtrl)
			tc.EXPECT().IsRunning().Return(true)
			tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(5))
			tc.EXPECT().Recv(gomock.Any(), transport.StreamID(5)).Return(tt.response(t), nil)
			tc.EXPECT().Close(true).Return(true)

			client := newTestClient(t, WithTransport(tc))
			defer client.Close()

			reply, err := client.DoSend(context.Background(), "Say", &types.StringValue{Value: "x"})
			if tt.wantErr != nil {
				var reqErr *RequestError
				require.True(t, errors.As(err, &reqErr), "want RequestError, got %v", err)
				assert.Equal(t, tt.wantErr.Procedure, reqErr.Procedure)
				assert.Equal(t, tt.wantErr.Code, reqErr.Code)
				assert.True(t, proto.Equal(tt.wantErr.Reply, reqErr.Reply))
				assert.Contains(t, err.Error(), tt.wantErr.Reply.(*types.StringValue).Value)
				assert.Nil(t, reply)
				return
			}
			require.NoError(t, err)
			assert.True(t, proto.Equal(tt.wantReply, reply))
		})
	}
}

func TestSendExhaustsAttempts(t *testing.T) {
	for _, attempts := range []int{1, 2, 3, 5} {
		t.Run("", func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			defer mockCtrl.Finish()

			scope := tally.NewTestScope("", nil)
			tc := transporttest.NewMockClient(mockCtrl)
			tc.EXPECT().IsRunning().Return(false)
			tc.EXPECT().Start().Return(true).Times(1)
			tc.EXPECT().IsRunning().Return(true).Times(attempts)
			tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.InvalidStreamID).Times(attempts)
			tc.EXPECT().ErrCode().Return(104).Times(attempts)
			tc.EXPECT().Close(true).Return(true)

			client := newTestClient(t,
				WithTransport(tc),
				RetryAttempts(attempts),
				RetryInterval(time.Millisecond),
				WithTally(scope),
			)
			defer client.Close()

			reply, code, err := client.SimpleRequest(context.Background(), "Say", &types.StringValue{})
			assert.Nil(t, reply)
			assert.Equal(t, rpcerrors.CodeInternal, code)

			var clientErr *ClientError
			require.True(t, errors.As(err, &clientErr), "want ClientError, got %v", err)
			assert.Equal(t, _hostname, clientErr.Hostname)
			assert.Equal(t, 104, clientErr.NativeCode)

			assert.Equal(t, int64(attempts), counter(scope, "reinits", nil))
			assert.Equal(t, int64(1), counter(scope, "requests", nil))
			assert.Equal(t, int64(1), counter(scope, "request_errors", nil))
			assert.Equal(t, int64(1), counter(scope, "retry_failures", map[string]string{"reason": "max_attempts"}))
		})
	}
}

func TestSendFailureWaitsBetweenAttempts(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	interval := 20 * testtime.Millisecond
	var stamps []time.Time

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true).AnyTimes()
	tc.EXPECT().ErrCode().Return(0).AnyTimes()
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *transport.Request) transport.StreamID {
			stamps = append(stamps, time.Now())
			return transport.InvalidStreamID
		}).Times(3)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc), RetryInterval(interval))
	defer client.Close()

	_, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.Error(t, err)
	require.Len(t, stamps, 3, "three send attempts")
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.True(t, gap >= interval, "attempt %d followed the previous one after %v", i+1, gap)
	}
}

func TestSendRecoversAfterReconnect(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	stale := transporttest.NewMockClient(mockCtrl)
	fresh := transporttest.NewMockClient(mockCtrl)
	factory := transporttest.NewMockFactory(mockCtrl)

	var requestIDs []string
	recordID := func(_ context.Context, req *transport.Request) {
		id, _ := req.Headers.Get(RequestIDHeader)
		requestIDs = append(requestIDs, id)
	}

	gomock.InOrder(
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(stale, nil),
		stale.EXPECT().IsRunning().Return(false),
		stale.EXPECT().Start().Return(true),
		stale.EXPECT().Send(gomock.Any(), gomock.Any()).Do(recordID).Return(transport.InvalidStreamID),
		stale.EXPECT().ErrCode().Return(32),
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(fresh, nil),
		fresh.EXPECT().IsRunning().Return(false),
		fresh.EXPECT().Start().Return(true),
		fresh.EXPECT().Send(gomock.Any(), gomock.Any()).Do(recordID).Return(transport.StreamID(9)),
		fresh.EXPECT().Recv(gomock.Any(), transport.StreamID(9)).
			Return(okResponse(t, 9, &types.StringValue{Value: "hi"}), nil),
	)
	// The replaced client is drained in the background.
	stale.EXPECT().Close(true).Return(true)
	fresh.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithFactory(factory), RetryInterval(time.Millisecond))
	reply, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.NoError(t, err)
	assert.True(t, proto.Equal(&types.StringValue{Value: "hi"}, reply))

	require.Len(t, requestIDs, 2)
	assert.NotEmpty(t, requestIDs[0])
	assert.Equal(t, requestIDs[0], requestIDs[1], "every attempt carries the same request id")

	require.NoError(t, client.Close())
}

func TestStartNotRepeatedWithoutSendFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(false).Times(1)
	tc.EXPECT().Start().Return(true).Times(1)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(1)).Times(3)
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).
		Return(okResponse(t, 1, &types.StringValue{}), nil).Times(3)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc))
	defer client.Close()

	for i := 0; i < 3; i++ {
		_, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
		require.NoError(t, err)
	}
}

func TestHeaderMerge(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), transporttest.NewRequestMatcher(t, &transport.Request{
		Procedure: "echo.Echo/Say",
		Headers: transport.HeadersFromMap(map[string]string{
			"team":      "call",
			"authority": "svc",
			"trace":     "1",
		}),
		Body: mustMarshal(t, &types.StringValue{Value: "x"}),
	})).Return(transport.StreamID(1))
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).Return(okResponse(t, 1, &types.StringValue{}), nil)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t,
		WithTransport(tc),
		WithHeaders(map[string]string{"team": "config", "authority": "svc"}),
	)
	defer client.Close()

	_, err := client.DoSend(context.Background(), "Say", &types.StringValue{Value: "x"},
		WithHeader("Team", "call"),
		WithHeader("trace", "1"),
	)
	require.NoError(t, err)
}

func TestConfiguredRequestID(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *transport.Request) transport.StreamID {
			id, _ := req.Headers.Get(RequestIDHeader)
			assert.Equal(t, "fixed", id)
			return 1
		})
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).Return(okResponse(t, 1, &types.StringValue{}), nil)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc))
	defer client.Close()

	_, err := client.DoSend(context.Background(), "Say", &types.StringValue{}, WithHeader(RequestIDHeader, "fixed"))
	require.NoError(t, err)
}

func TestRecvTimeout(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(1)).Times(2)
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).
		DoAndReturn(func(ctx context.Context, _ transport.StreamID) (*transport.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Times(2)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc), RecvTimeout(time.Hour))
	defer client.Close()

	_, code, err := client.SimpleRequest(context.Background(), "Say", &types.StringValue{},
		WithRecvTimeout(10*testtime.Millisecond))
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr), "want ClientError, got %v", err)
	assert.Equal(t, rpcerrors.CodeDeadlineExceeded, code)
	assert.Equal(t, rpcerrors.CodeDeadlineExceeded, clientErr.Code)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*testtime.Millisecond, cancel)
	_, code, err = client.SimpleRequest(ctx, "Say", &types.StringValue{})
	require.Error(t, err)
	assert.Equal(t, rpcerrors.CodeCancelled, code)
}

func TestDecoderResolvedBeforeSending(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	// No expectations: nothing may touch the transport.
	tc := transporttest.NewMockClient(mockCtrl)

	client, err := New(_service, _hostname, WithTransport(tc))
	require.NoError(t, err)

	_, err = client.DoSend(context.Background(), "Say", &types.StringValue{})
	assert.Equal(t, protobuf.ErrNoServiceDescriptor, err)

	client = newTestClient(t, WithTransport(tc))
	_, err = client.DoSend(context.Background(), "Shout", &types.StringValue{})
	assert.Error(t, err)
}

func TestWithResponseDecoder(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(1))
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).
		Return(okResponse(t, 1, &types.Int64Value{Value: 42}), nil)
	tc.EXPECT().Close(true).Return(true)

	client, err := New(_service, _hostname, WithTransport(tc))
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.DoSend(context.Background(), "Count", &types.StringValue{},
		WithResponseDecoder(protobuf.NewDecoder(func() proto.Message { return &types.Int64Value{} })))
	require.NoError(t, err)
	assert.Equal(t, int64(42), reply.(*types.Int64Value).Value)
}

func TestDecodeErrorNotRetried(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(1)).Times(1)
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).
		Return(&transport.Response{StreamID: 1, Body: []byte{0xff, 0xff}}, nil)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc))
	defer client.Close()

	_, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.Error(t, err)
	var clientErr *ClientError
	assert.False(t, errors.As(err, &clientErr), "decode errors propagate unchanged")
}

func TestUnaryTracing(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tracer := mocktracer.New()
	tc := transporttest.NewMockClient(mockCtrl)
	tc.EXPECT().IsRunning().Return(true)
	tc.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *transport.Request) transport.StreamID {
			_, ok := req.Headers.Get("mockpfx-ids-traceid")
			assert.True(t, ok, "span context must be injected, got %v", req.Headers.Items())
			return 1
		}).Times(2)
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).Return(okResponse(t, 1, &types.StringValue{}), nil)
	tc.EXPECT().Recv(gomock.Any(), transport.StreamID(1)).Return(statusResponse(1, 13, "boom"), nil)
	tc.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithTransport(tc), WithTracer(tracer))
	defer client.Close()

	_, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.NoError(t, err)
	_, err = client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.Error(t, err)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "echo.Echo/Say", span.OperationName)
		assert.Equal(t, ext.SpanKindRPCClientEnum, span.Tag(string(ext.SpanKind)))
		assert.Equal(t, _hostname, span.Tag(string(ext.PeerHostname)))
	}
	assert.Nil(t, spans[0].Tag(string(ext.Error)))
	assert.Equal(t, true, spans[1].Tag(string(ext.Error)))
	assert.Equal(t, "internal", spans[1].Tag("rpc.status_code"))
}

func TestFirstStartFailureNotRetried(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	failed := transporttest.NewMockClient(mockCtrl)
	factory := transporttest.NewMockFactory(mockCtrl)
	gomock.InOrder(
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(failed, nil),
		failed.EXPECT().IsRunning().Return(false),
		failed.EXPECT().Start().Return(false),
		failed.EXPECT().ErrCode().Return(111),
		failed.EXPECT().Close(false).Return(true),
	)

	client := newTestClient(t, WithFactory(factory), RetryAttempts(3), RetryInterval(time.Millisecond))
	defer client.Close()

	reply, code, err := client.SimpleRequest(context.Background(), "Say", &types.StringValue{})
	assert.Nil(t, reply)
	assert.Equal(t, rpcerrors.CodeInternal, code)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr), "want ClientError, got %v", err)
	assert.Equal(t, 111, clientErr.NativeCode)
	assert.Equal(t, "failed to start the transport client", clientErr.Message)
}

func TestRestartFailureRetried(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	stale := transporttest.NewMockClient(mockCtrl)
	broken := transporttest.NewMockClient(mockCtrl)
	stillBroken := transporttest.NewMockClient(mockCtrl)
	fresh := transporttest.NewMockClient(mockCtrl)
	factory := transporttest.NewMockFactory(mockCtrl)

	gomock.InOrder(
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(stale, nil),
		stale.EXPECT().IsRunning().Return(false),
		stale.EXPECT().Start().Return(true),
		stale.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.InvalidStreamID),
		stale.EXPECT().ErrCode().Return(32),

		// Reconnecting inside the failed attempt.
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(broken, nil),
		broken.EXPECT().IsRunning().Return(false),
		broken.EXPECT().Start().Return(false),
		broken.EXPECT().ErrCode().Return(14),
		broken.EXPECT().Close(false).Return(true),

		// The second attempt fails to start again and is retried.
		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(stillBroken, nil),
		stillBroken.EXPECT().IsRunning().Return(false),
		stillBroken.EXPECT().Start().Return(false),
		stillBroken.EXPECT().ErrCode().Return(14),
		stillBroken.EXPECT().Close(false).Return(true),

		factory.EXPECT().NewClient(_hostname, gomock.Any()).Return(fresh, nil),
		fresh.EXPECT().IsRunning().Return(false),
		fresh.EXPECT().Start().Return(true),
		fresh.EXPECT().Send(gomock.Any(), gomock.Any()).Return(transport.StreamID(4)),
		fresh.EXPECT().Recv(gomock.Any(), transport.StreamID(4)).
			Return(okResponse(t, 4, &types.StringValue{Value: "back"}), nil),
	)
	stale.EXPECT().Close(true).Return(true)
	fresh.EXPECT().Close(true).Return(true)

	client := newTestClient(t, WithFactory(factory), RetryAttempts(3), RetryInterval(time.Millisecond))
	reply, err := client.DoSend(context.Background(), "Say", &types.StringValue{})
	require.NoError(t, err)
	assert.True(t, proto.Equal(&types.StringValue{Value: "back"}, reply))

	require.NoError(t, client.Close())
}
