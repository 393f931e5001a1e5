package client

import (
	"context"
	"time"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/rpc/protocol"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Backend reads and changes features, either in process or through the supervisor
type Backend interface {
	Features(ctx context.Context) ([]shared.State, error)
	Get(ctx context.Context, key string) (shared.State, error)
	Set(ctx context.Context, key, value string) (shared.State, error)
	// Refresh re-reads hardware and returns the keys that changed
	Refresh(ctx context.Context) ([]string, error)
	Save(ctx context.Context) error
	// Watch delivers changes until ctx is done
	Watch(ctx context.Context) (<-chan controller.Change, error)
	// DriverLoaded reports whether the lg-laptop driver is present where the features live
	DriverLoaded(ctx context.Context) (bool, error)
	Close() error
}

// Local drives the hardware from this process
type Local struct {
	Controller *controller.Controller
}

var _ Backend = &Local{}

func (l *Local) Features(ctx context.Context) ([]shared.State, error) {
	return l.Controller.Features(), nil
}

func (l *Local) Get(ctx context.Context, key string) (shared.State, error) {
	return l.Controller.Get(key)
}

func (l *Local) Set(ctx context.Context, key, value string) (shared.State, error) {
	return l.Controller.Set(ctx, key, value)
}

func (l *Local) Refresh(ctx context.Context) ([]string, error) {
	changes := l.Controller.Refresh()
	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.Key)
	}
	return keys, nil
}

func (l *Local) Save(ctx context.Context) error {
	return l.Controller.Save()
}

func (l *Local) Watch(ctx context.Context) (<-chan controller.Change, error) {
	changes, cancel := l.Controller.Subscribe()
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return changes, nil
}

func (l *Local) DriverLoaded(ctx context.Context) (bool, error) {
	return l.Controller.Dependencies().DriverLoaded(), nil
}

func (l *Local) Close() error {
	l.Controller.Dependencies().ConfigRegistry.Close()
	return nil
}

// Remote talks to the supervisor over gRPC
type Remote struct {
	conn   *grpc.ClientConn
	client protocol.FeaturesClient
}

var _ Backend = &Remote{}

// Dial connects to the supervisor at address
func Dial(ctx context.Context, address string) (*Remote, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*2)
	defer cancel()
	conn, err := grpc.DialContext(ctx, address, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to supervisor at %s", address)
	}
	return NewRemote(conn), nil
}

// NewRemote wraps an existing connection
func NewRemote(conn *grpc.ClientConn) *Remote {
	return &Remote{
		conn:   conn,
		client: protocol.NewFeaturesClient(conn),
	}
}

func (r *Remote) Features(ctx context.Context) ([]shared.State, error) {
	list, err := r.client.List(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return protocol.ListToFeatures(list)
}

func (r *Remote) Get(ctx context.Context, key string) (shared.State, error) {
	resp, err := r.client.Get(ctx, wrapperspb.String(key))
	if err != nil {
		return shared.State{}, err
	}
	return protocol.StructToFeature(resp)
}

func (r *Remote) Set(ctx context.Context, key, value string) (shared.State, error) {
	resp, err := r.client.Set(ctx, protocol.NewSetRequest(key, value))
	if err != nil {
		return shared.State{}, err
	}
	return protocol.StructToFeature(resp)
}

func (r *Remote) Refresh(ctx context.Context) ([]string, error) {
	list, err := r.client.Refresh(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		key, _, _ := protocol.StructToChange(v.GetStructValue())
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *Remote) Save(ctx context.Context) error {
	_, err := r.client.Save(ctx, &emptypb.Empty{})
	return err
}

func (r *Remote) Watch(ctx context.Context) (<-chan controller.Change, error) {
	stream, err := r.client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	changes := make(chan controller.Change, 16)
	go func() {
		defer close(changes)
		for {
			m, err := stream.Recv()
			if err != nil {
				return
			}
			key, value, external := protocol.StructToChange(m)
			select {
			case changes <- controller.Change{Key: key, Value: value, External: external}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return changes, nil
}

func (r *Remote) DriverLoaded(ctx context.Context) (bool, error) {
	resp, err := r.client.Driver(ctx, &emptypb.Empty{})
	if err != nil {
		return false, err
	}
	return resp.GetValue(), nil
}

func (r *Remote) Close() error {
	return r.conn.Close()
}
