// Package protocol describes the grammanager.Features gRPC service. Messages
// are protobuf well-known types so no generated code is required
package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "grammanager.Features"

const (
	methodList    = "/" + ServiceName + "/List"
	methodGet     = "/" + ServiceName + "/Get"
	methodSet     = "/" + ServiceName + "/Set"
	methodRefresh = "/" + ServiceName + "/Refresh"
	methodSave    = "/" + ServiceName + "/Save"
	methodWatch   = "/" + ServiceName + "/Watch"
	methodDriver  = "/" + ServiceName + "/Driver"
)

// FeaturesServer is the server API for the Features service
type FeaturesServer interface {
	// List returns every feature, encoded with FeatureToStruct, in display order
	List(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// Get returns the feature named by the key
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Set expects a request built by NewSetRequest and returns the updated feature
	Set(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Refresh re-reads hardware and returns the changes, encoded with ChangeToStruct
	Refresh(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// Save persists the current settings
	Save(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Watch streams every change until the client goes away
	Watch(*emptypb.Empty, FeaturesWatchServer) error
	// Driver reports whether the lg-laptop driver is loaded on the supervisor's machine
	Driver(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
}

// FeaturesWatchServer is the server side of the Watch stream
type FeaturesWatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

// UnimplementedFeaturesServer can be embedded to have forward compatible implementations
type UnimplementedFeaturesServer struct{}

func (UnimplementedFeaturesServer) List(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedFeaturesServer) Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedFeaturesServer) Set(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Set not implemented")
}
func (UnimplementedFeaturesServer) Refresh(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Refresh not implemented")
}
func (UnimplementedFeaturesServer) Save(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Save not implemented")
}
func (UnimplementedFeaturesServer) Watch(*emptypb.Empty, FeaturesWatchServer) error {
	return status.Errorf(codes.Unimplemented, "method Watch not implemented")
}
func (UnimplementedFeaturesServer) Driver(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Driver not implemented")
}

// RegisterFeaturesServer registers srv with s
func RegisterFeaturesServer(s *grpc.Server, srv FeaturesServer) {
	s.RegisterService(&FeaturesServiceDesc, srv)
}

// FeaturesServiceDesc is the grpc.ServiceDesc for the Features service
var FeaturesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeaturesServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "List",
			Handler:    listHandler,
		},
		{
			MethodName: "Get",
			Handler:    getHandler,
		},
		{
			MethodName: "Set",
			Handler:    setHandler,
		},
		{
			MethodName: "Refresh",
			Handler:    refreshHandler,
		},
		{
			MethodName: "Save",
			Handler:    saveHandler,
		},
		{
			MethodName: "Driver",
			Handler:    driverHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "features.proto",
}

func listHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodList,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).List(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodGet,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func setHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodSet,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func refreshHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).Refresh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodRefresh,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).Refresh(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func saveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).Save(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodSave,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).Save(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func driverHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeaturesServer).Driver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodDriver,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeaturesServer).Driver(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FeaturesServer).Watch(in, &watchServer{stream})
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}
