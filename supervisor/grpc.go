package supervisor

import (
	"context"
	"log"
	"net"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/rpc/server"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/pkg/errors"
	"github.com/thejerf/suture/v4"
	"google.golang.org/grpc"
)

type servers struct {
	Features *server.FeaturesServer
}

type Server struct {
	server  *grpc.Server
	servers servers
	address string
}

type GRPCRunConfig struct {
	Controller *controller.Controller
	// Address defaults to shared.GRPCAddress
	Address string
}

func NewGRPCServer(conf GRPCRunConfig) (*Server, error) {
	if conf.Controller == nil {
		return nil, errors.New("nil controller is invalid")
	}
	if conf.Address == "" {
		conf.Address = shared.GRPCAddress
	}

	s := grpc.NewServer()

	return &Server{
		server: s,
		servers: servers{
			Features: server.RegisterFeaturesServer(s, conf.Controller),
		},
		address: conf.Address,
	}, nil
}

func (s *Server) Serve(haltCtx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		log.Printf("[gRPCServer] Failed to listen for connections: %+v\n", err)
		return errors.Wrap(suture.ErrTerminateSupervisorTree, "[gRPCServer] failed to listen for connections") // If we cannot start gRPC Server, kill the entire tree
	}

	go func() {
		<-haltCtx.Done()
		log.Printf("[gRPCServer] stopping grpc server\n")
		s.server.GracefulStop()
		log.Printf("[gRPCServer] server stopped\n")
	}()
	log.Printf("[gRPCServer] grpc server available at %s\n", s.address)

	return s.server.Serve(lis)
}

func (s *Server) String() string {
	return "gRPCServer"
}

// HotReload points the API at a new controller
func (s *Server) HotReload(ctrl *controller.Controller) {
	s.servers.Features.HotReload(ctrl)
}
