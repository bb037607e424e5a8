package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xdao.zpass.v1.Signer"

// SignerServer is the server API for the Signer service.
//
// Requests and responses are protobuf Struct values so the service needs no
// protoc/codegen step. Proto definition: signer.proto.
type SignerServer interface {
	HashTokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MerkleRoot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MerkleTree(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MerkleProof(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignRoot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignCredential(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TokenToField(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedSignerServer can be embedded to have forward compatible implementations.
type UnimplementedSignerServer struct{}

func (UnimplementedSignerServer) HashTokens(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HashTokens not implemented")
}
func (UnimplementedSignerServer) MerkleRoot(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MerkleRoot not implemented")
}
func (UnimplementedSignerServer) MerkleTree(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MerkleTree not implemented")
}
func (UnimplementedSignerServer) MerkleProof(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MerkleProof not implemented")
}
func (UnimplementedSignerServer) SignRoot(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignRoot not implemented")
}
func (UnimplementedSignerServer) SignCredential(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignCredential not implemented")
}
func (UnimplementedSignerServer) Verify(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedSignerServer) TokenToField(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method TokenToField not implemented")
}
func (UnimplementedSignerServer) GetReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReceipt not implemented")
}

// RegisterSignerServer registers the Signer service on a gRPC server.
func RegisterSignerServer(s grpc.ServiceRegistrar, srv SignerServer) {
	s.RegisterService(&Signer_ServiceDesc, srv)
}

// SignerClient is the client API for the Signer service. Every method has
// the same shape, so the client is a single Invoke keyed by method name.
type SignerClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type signerClient struct{ cc grpc.ClientConnInterface }

func NewSignerClient(cc grpc.ClientConnInterface) SignerClient { return &signerClient{cc: cc} }

func (c *signerClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func fullMethod(method string) string { return "/" + ServiceName + "/" + method }

type unaryCall func(SignerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SignerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(SignerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, h)
		},
	}
}

// Signer_ServiceDesc is the grpc.ServiceDesc for the Signer service.
var Signer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SignerServer)(nil),
	Methods: []grpc.MethodDesc{
		handler("HashTokens", SignerServer.HashTokens),
		handler("MerkleRoot", SignerServer.MerkleRoot),
		handler("MerkleTree", SignerServer.MerkleTree),
		handler("MerkleProof", SignerServer.MerkleProof),
		handler("SignRoot", SignerServer.SignRoot),
		handler("SignCredential", SignerServer.SignCredential),
		handler("Verify", SignerServer.Verify),
		handler("TokenToField", SignerServer.TokenToField),
		handler("GetReceipt", SignerServer.GetReceipt),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "signer.proto",
}
