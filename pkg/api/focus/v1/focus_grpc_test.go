package focusv1_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	focusv1 "github.com/jamesainslie/multifocus/pkg/api/focus/v1"
)

type fakeServer struct {
	focusv1.UnimplementedFocusControlServer

	resets int
	work   *bool
	plans  string
}

func (f *fakeServer) Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	f.resets++
	return &emptypb.Empty{}, nil
}

func (f *fakeServer) SetWork(_ context.Context, in *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	v := in.GetValue()
	f.work = &v
	return &emptypb.Empty{}, nil
}

func (f *fakeServer) SetPlans(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	f.plans = in.GetValue()
	return focusv1.ToStruct(focusv1.PlansResult{Parsed: 2, Plans: in.GetValue(), Adopted: true})
}

func (f *fakeServer) GetPlans(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(f.plans), nil
}

func (f *fakeServer) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	for i := range 3 {
		ev, err := structpb.NewStruct(map[string]any{"kind": "state_changed", "n": i})
		if err != nil {
			return err
		}
		if err := stream.Send(ev); err != nil {
			return err
		}
	}
	return nil
}

func dial(t *testing.T, srv focusv1.FocusControlServer, opts ...grpc.ServerOption) focusv1.FocusControlClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	focusv1.RegisterFocusControlServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return focusv1.NewFocusControlClient(conn)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUnaryRoundTrip(t *testing.T) {
	srv := &fakeServer{}
	c := dial(t, srv)
	ctx := testContext(t)

	_, err := c.Reset(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.resets)

	_, err = c.SetWork(ctx, wrapperspb.Bool(false))
	require.NoError(t, err)
	require.NotNil(t, srv.work)
	assert.False(t, *srv.work)

	resp, err := c.SetPlans(ctx, wrapperspb.String("100;300;"))
	require.NoError(t, err)

	var res focusv1.PlansResult
	require.NoError(t, focusv1.FromStruct(resp, &res))
	assert.Equal(t, focusv1.PlansResult{Parsed: 2, Plans: "100;300;", Adopted: true}, res)

	plans, err := c.GetPlans(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "100;300;", plans.GetValue())
}

func TestUnimplemented(t *testing.T) {
	c := dial(t, &fakeServer{})
	ctx := testContext(t)

	_, err := c.Calibrate(ctx, &emptypb.Empty{})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = c.GetHistory(ctx, wrapperspb.Int32(5))
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestWatchEvents(t *testing.T) {
	c := dial(t, &fakeServer{})

	stream, err := c.WatchEvents(testContext(t), &emptypb.Empty{})
	require.NoError(t, err)

	var got []float64
	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "state_changed", ev.GetFields()["kind"].GetStringValue())
		got = append(got, ev.GetFields()["n"].GetNumberValue())
	}
	assert.Equal(t, []float64{0, 1, 2}, got)
}

func TestInterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}

	srv := &fakeServer{}
	c := dial(t, srv, grpc.UnaryInterceptor(interceptor))
	ctx := testContext(t)

	_, err := c.Reset(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	_, err = c.GetPlans(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/multifocus.v1.FocusControl/Reset",
		"/multifocus.v1.FocusControl/GetPlans",
	}, seen)
	assert.Equal(t, 1, srv.resets)
}

func TestStructConversion(t *testing.T) {
	type payload struct {
		Name   string  `json:"name"`
		Plans  []int   `json:"plans"`
		Score  int64   `json:"score"`
		Nested *string `json:"nested,omitempty"`
	}
	in := payload{Name: "steady", Plans: []int{100, 310}, Score: 42}

	s, err := focusv1.ToStruct(in)
	require.NoError(t, err)
	assert.Equal(t, "steady", s.GetFields()["name"].GetStringValue())

	var out payload
	require.NoError(t, focusv1.FromStruct(s, &out))
	assert.Equal(t, in, out)

	_, err = focusv1.ToStruct([]int{1})
	assert.Error(t, err, "a JSON array is not a Struct")

	assert.Error(t, focusv1.FromStruct(nil, &out))
}
