// Package debugserver serves a dynamically-built DebugDump message
// (closure map / liveness map / warnings) over a unary gRPC RPC,
// satisfying spec.md §6's "--debug mode dumps ... for inspection"
// with a queryable service instead of only a text dump. The message
// schema is built at startup from an embedded .proto string with
// jhump/protoreflect, no generated stubs checked in — the same
// technique internal/evaluator/builtins_grpc.go uses for the
// language's native gRPC builtin (protoparse.Parser + dynamic.Message
// + a hand-built grpc.ServiceDesc instead of protoc-gen-go output).
package debugserver

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
)

const protoSource = `
syntax = "proto3";
package deadvalue.debug;

message DebugDump {
  string session = 1;
  string closure_json = 2;
  string liveness_json = 3;
  string warnings_json = 4;
}

message DumpRequest {
  string kind = 1; // "closure" | "liveness" | "warnings" | "" for all
}

service Debug {
  rpc Dump(DumpRequest) returns (DebugDump);
}
`

// Source supplies the JSON payloads served by one DebugDump call.
// cmd/deadvalue wires this to the live pipeline state of the current
// run.
type Source interface {
	SessionID() string
	ClosureJSON() ([]byte, error)
	LivenessJSON() ([]byte, error)
	WarningsJSON() ([]byte, error)
}

// Server hosts the dynamic Debug/Dump RPC.
type Server struct {
	grpcServer *grpc.Server
	msgDesc    *desc.MessageDescriptor
}

// New parses the embedded proto schema and builds a *grpc.Server
// exposing the dynamic Debug service backed by src.
func New(src Source) (*Server, error) {
	fds, err := parseEmbeddedProto()
	if err != nil {
		return nil, fmt.Errorf("building debug proto schema: %w", err)
	}
	sd := fds.FindService("deadvalue.debug.Debug")
	if sd == nil {
		return nil, fmt.Errorf("debug service descriptor not found in schema")
	}
	dumpMsg := fds.FindMessage("deadvalue.debug.DebugDump")
	reqMsg := fds.FindMessage("deadvalue.debug.DumpRequest")
	if dumpMsg == nil || reqMsg == nil {
		return nil, fmt.Errorf("debug message descriptors not found in schema")
	}

	handler := &dumpHandler{src: src, reqDesc: reqMsg, dumpDesc: dumpMsg}

	svcDesc := &grpc.ServiceDesc{
		ServiceName: "deadvalue.debug.Debug",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Dump",
				Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					h := srv.(*dumpHandler)
					return h.handleDump(ctx, dec)
				},
			},
		},
		Metadata: sd.GetFile().GetName(),
	}

	gs := grpc.NewServer()
	gs.RegisterService(svcDesc, handler)
	return &Server{grpcServer: gs, msgDesc: dumpMsg}, nil
}

// Serve blocks, listening on addr until the server is stopped.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	fmt.Fprintf(os.Stderr, "[deadvalue] debug server listening on %s\n", addr)
	return s.grpcServer.Serve(lis)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

func parseEmbeddedProto() (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			"debug.proto": protoSource,
		}),
	}
	fds, err := parser.ParseFiles("debug.proto")
	if err != nil {
		return nil, err
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("no file descriptors parsed")
	}
	return fds[0], nil
}

type dumpHandler struct {
	src      Source
	reqDesc  *desc.MessageDescriptor
	dumpDesc *desc.MessageDescriptor
}

func (h *dumpHandler) handleDump(_ context.Context, dec func(any) error) (any, error) {
	req := dynamic.NewMessage(h.reqDesc)
	if err := dec(req); err != nil {
		return nil, err
	}
	kind, _ := req.TryGetFieldByName("kind")
	kindStr, _ := kind.(string)

	resp := dynamic.NewMessage(h.dumpDesc)
	resp.SetFieldByName("session", h.src.SessionID())

	if kindStr == "" || kindStr == "closure" {
		if body, err := h.src.ClosureJSON(); err == nil {
			resp.SetFieldByName("closure_json", string(body))
		}
	}
	if kindStr == "" || kindStr == "liveness" {
		if body, err := h.src.LivenessJSON(); err == nil {
			resp.SetFieldByName("liveness_json", string(body))
		}
	}
	if kindStr == "" || kindStr == "warnings" {
		if body, err := h.src.WarningsJSON(); err == nil {
			resp.SetFieldByName("warnings_json", string(body))
		}
	}
	return resp, nil
}
