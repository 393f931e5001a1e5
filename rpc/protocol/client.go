package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FeaturesClient is the client API for the Features service
type FeaturesClient interface {
	List(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Set(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Refresh(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Save(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (FeaturesWatchClient, error)
	Driver(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

// FeaturesWatchClient is the client side of the Watch stream
type FeaturesWatchClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type featuresClient struct {
	cc grpc.ClientConnInterface
}

// NewFeaturesClient returns a client using cc
func NewFeaturesClient(cc grpc.ClientConnInterface) FeaturesClient {
	return &featuresClient{cc}
}

func (c *featuresClient) List(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodList, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Set(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Refresh(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodRefresh, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Save(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodSave, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Driver(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodDriver, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *featuresClient) Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (FeaturesWatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &FeaturesServiceDesc.Streams[0], methodWatch, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type watchClient struct {
	grpc.ClientStream
}

func (x *watchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
