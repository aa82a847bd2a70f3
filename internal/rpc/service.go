// Package rpc serves the rotor engine over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rotor.v1.Cipher"

const (
	encodeMethod         = "/" + ServiceName + "/Encode"
	decodeMethod         = "/" + ServiceName + "/Decode"
	listOperationsMethod = "/" + ServiceName + "/ListOperations"
)

// CipherServer is the server API for the rotor.v1.Cipher service.
type CipherServer interface {
	Encode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOperations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterCipherServer registers srv with s.
func RegisterCipherServer(s grpc.ServiceRegistrar, srv CipherServer) {
	s.RegisterService(&cipherServiceDesc, srv)
}

func unaryHandler(method string, call func(CipherServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CipherServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CipherServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var cipherServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CipherServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Encode",
			Handler:    unaryHandler(encodeMethod, CipherServer.Encode),
		},
		{
			MethodName: "Decode",
			Handler:    unaryHandler(decodeMethod, CipherServer.Decode),
		},
		{
			MethodName: "ListOperations",
			Handler:    unaryHandler(listOperationsMethod, CipherServer.ListOperations),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rotor/v1/cipher.proto",
}
