package server

import (
	"context"
	"log"
	"sync"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/rpc/protocol"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type FeaturesServer struct {
	protocol.UnimplementedFeaturesServer

	mu      sync.RWMutex
	control *controller.Controller
	// reloaded is closed and replaced on every HotReload
	reloaded chan struct{}
}

var _ protocol.FeaturesServer = &FeaturesServer{}

func RegisterFeaturesServer(s *grpc.Server, ctrl *controller.Controller) *FeaturesServer {
	server := &FeaturesServer{
		control:  ctrl,
		reloaded: make(chan struct{}),
	}
	protocol.RegisterFeaturesServer(s, server)
	return server
}

func (f *FeaturesServer) current() (*controller.Controller, error) {
	c, _, err := f.currentWithReload()
	return c, err
}

func (f *FeaturesServer) currentWithReload() (*controller.Controller, <-chan struct{}, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.control == nil {
		return nil, nil, status.Error(codes.Unavailable, "features server is not initialized")
	}
	return f.control, f.reloaded, nil
}

// toStatus maps controller and feature errors to gRPC status codes
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, controller.ErrUnknownFeature):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, shared.ErrUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (f *FeaturesServer) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	return protocol.FeaturesToList(c.Features()), nil
}

func (f *FeaturesServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "nil request is invalid")
	}
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	state, err := c.Get(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return protocol.FeatureToStruct(state), nil
}

func (f *FeaturesServer) Set(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, value, err := protocol.ParseSetRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	state, err := c.Set(ctx, key, value)
	if err != nil {
		return nil, toStatus(err)
	}
	return protocol.FeatureToStruct(state), nil
}

func (f *FeaturesServer) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	changes := c.Refresh()
	values := make([]*structpb.Value, 0, len(changes))
	for _, change := range changes {
		values = append(values, structpb.NewStructValue(protocol.ChangeToStruct(change.Key, change.Value, change.External)))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (f *FeaturesServer) Save(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	if err := c.Save(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (f *FeaturesServer) Driver(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	c, err := f.current()
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(c.Dependencies().DriverLoaded()), nil
}

// Watch streams changes until the client goes away. After a hot reload the
// stream moves to the new controller
func (f *FeaturesServer) Watch(_ *emptypb.Empty, stream protocol.FeaturesWatchServer) error {
	for {
		c, reloaded, err := f.currentWithReload()
		if err != nil {
			return err
		}
		done, err := f.forward(c, reloaded, stream)
		if done || err != nil {
			return err
		}
		log.Println("[gRPCServer] watch stream following reloaded controller")
	}
}

// forward sends changes from c until the stream ends (done) or the server is reloaded
func (f *FeaturesServer) forward(c *controller.Controller, reloaded <-chan struct{}, stream protocol.FeaturesWatchServer) (bool, error) {
	changes, cancel := c.Subscribe()
	defer cancel()

	for {
		select {
		case <-stream.Context().Done():
			return true, nil
		case <-reloaded:
			return false, nil
		case change, ok := <-changes:
			if !ok {
				return true, nil
			}
			if err := stream.Send(protocol.ChangeToStruct(change.Key, change.Value, change.External)); err != nil {
				return true, err
			}
		}
	}
}

func (f *FeaturesServer) HotReload(ctrl *controller.Controller) {
	f.mu.Lock()
	defer f.mu.Unlock()

	log.Println("[gRPCServer] hot reloading features server")

	f.control = ctrl
	if f.reloaded != nil {
		close(f.reloaded)
	}
	f.reloaded = make(chan struct{})
}
