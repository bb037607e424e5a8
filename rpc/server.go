// Package rpc serves the zpass operations over gRPC and provides a client
// for them.
package rpc

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/zpass/hashing"
	"xdao.co/zpass/receipt"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
	"xdao.co/zpass/zpass"
)

// RequestIDHeader is the response header carrying the per-call request ID.
const RequestIDHeader = "x-request-id"

// Server exposes the zpass operations over the Signer gRPC service.
type Server struct {
	UnimplementedSignerServer

	// Network applies when a request carries no "network" member.
	Network zkcrypto.Network
	// Algorithm applies when a SignCredential request carries no "algorithm".
	Algorithm hashing.Algorithm
	// Store, when set, archives receipts and serves GetReceipt.
	Store receipt.Store
	Log   *zap.Logger
	Rand  io.Reader
	// OnFatal is called after a self-verification failure. The daemon uses
	// it to stop serving.
	OnFatal func(error)
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) opts(ctx context.Context) []zpass.Option {
	l := s.log()
	if id := requestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	o := []zpass.Option{zpass.WithLogger(l), zpass.WithRand(s.Rand)}
	if s.Store != nil {
		o = append(o, zpass.WithReceiptStore(s.Store))
	}
	return o
}

func (s *Server) network(r request) (zkcrypto.Network, error) {
	name, ok, err := r.optString("network")
	if err != nil || !ok {
		return s.Network, err
	}
	return zkcrypto.ParseNetwork(name)
}

// fail converts err to a status and reports fatal errors.
func (s *Server) fail(ctx context.Context, err error) error {
	if zerr.IsFatal(err) {
		s.log().Error("fatal signing failure", zap.String("request_id", requestID(ctx)), zap.Error(err))
		if s.OnFatal != nil {
			s.OnFatal(err)
		}
	}
	return toStatus(ctx, err)
}

func (s *Server) tokensCall(ctx context.Context, in *structpb.Struct) (request, []string, zkcrypto.Network, error) {
	r := request{in}
	n, err := s.network(r)
	if err != nil {
		return r, nil, 0, err
	}
	tokens, err := r.strings("tokens")
	return r, tokens, n, err
}

func (s *Server) HashTokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, tokens, n, err := s.tokensCall(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	leaves, err := zpass.HashTokensToFixedSize8(tokens, n, s.opts(ctx)...)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return response(map[string]*structpb.Value{"leaves": stringList(leaves)}), nil
}

func (s *Server) MerkleRoot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, tokens, n, err := s.tokensCall(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	root, err := zpass.MerkleRoot(tokens, n, s.opts(ctx)...)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return response(map[string]*structpb.Value{"root": structpb.NewStringValue(root)}), nil
}

func (s *Server) MerkleTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, tokens, n, err := s.tokensCall(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	levels, err := zpass.MerkleTree(tokens, n, s.opts(ctx)...)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	vals := make([]*structpb.Value, len(levels))
	for i, l := range levels {
		vals[i] = stringList(l)
	}
	return response(map[string]*structpb.Value{
		"levels": structpb.NewListValue(&structpb.ListValue{Values: vals}),
	}), nil
}

func (s *Server) MerkleProof(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r, tokens, n, err := s.tokensCall(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	index, err := r.index("index")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	proof, err := zpass.MerkleProof(tokens, index, n, s.opts(ctx)...)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return response(map[string]*structpb.Value{"proof": stringList(proof)}), nil
}

func (s *Server) SignRoot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := request{in}
	n, err := s.network(r)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	key, err := r.str("private_key")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	root, err := r.str("root")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	res, err := zpass.SignRoot(key, root, n, s.opts(ctx)...)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return signResponse(res), nil
}

// SignCredential accepts either "credential_json", a JSON object string
// whose key order is kept, or "entries", a list of {name, token}.
func (s *Server) SignCredential(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := request{in}
	n, err := s.network(r)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	key, err := r.str("private_key")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	alg := s.Algorithm
	if name, ok, err := r.optString("algorithm"); err != nil {
		return nil, s.fail(ctx, err)
	} else if ok {
		if alg, err = hashing.ParseAlgorithm(name); err != nil {
			return nil, s.fail(ctx, err)
		}
	}

	doc, hasJSON, err := r.optString("credential_json")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	pairs, hasPairs, err := r.entries("entries")
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	var res *zpass.SignResponse
	switch {
	case hasJSON && hasPairs:
		err = badRequest("credential_json and entries are mutually exclusive")
	case hasJSON:
		res, err = zpass.SignCredential(key, []byte(doc), alg, n, s.opts(ctx)...)
	case hasPairs:
		res, err = zpass.SignCredentialPairs(key, pairs, alg, n, s.opts(ctx)...)
	default:
		err = badRequest("credential_json or entries is required")
	}
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return signResponse(res), nil
}

func (s *Server) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := request{in}
	n, err := s.network(r)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	args := make([]string, 3)
	for i, key := range []string{"signature", "address", "message"} {
		if args[i], err = r.str(key); err != nil {
			return nil, s.fail(ctx, err)
		}
	}
	ok, err := zpass.VerifySignedCredential(args[0], args[1], args[2], n)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return response(map[string]*structpb.Value{"valid": structpb.NewBoolValue(ok)}), nil
}

// TokenToField treats an absent or null "token" as a missing value.
func (s *Server) TokenToField(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := request{in}
	n, err := s.network(r)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	tok, ok, err := r.optString("token")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	var p *string
	if ok {
		p = &tok
	}
	f, err := zpass.TokenToField(p, n)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return response(map[string]*structpb.Value{"field": structpb.NewStringValue(f)}), nil
}

func (s *Server) GetReceipt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Store == nil {
		return nil, s.fail(ctx, zerr.New(zerr.KindInput, zerr.RuleReceipt, "receipt archive is not enabled"))
	}
	raw, err := request{in}.str("cid")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	id, err := cid.Decode(raw)
	if err != nil || !id.Defined() {
		return nil, s.fail(ctx, zerr.Wrap(zerr.KindInput, zerr.RuleReceipt, "invalid receipt cid", err))
	}
	rec, err := receipt.Lookup(s.Store, id)
	if err != nil {
		if receipt.IsNotFound(err) {
			return nil, toStatus(ctx, err)
		}
		return nil, s.fail(ctx, zerr.Wrap(zerr.KindInput, zerr.RuleReceipt, "load receipt", err))
	}
	return response(map[string]*structpb.Value{
		"type":      structpb.NewStringValue(rec.Type),
		"network":   structpb.NewStringValue(rec.Network),
		"algorithm": structpb.NewStringValue(rec.Algorithm),
		"hash":      structpb.NewStringValue(rec.Hash),
		"address":   structpb.NewStringValue(rec.Address),
		"signature": structpb.NewStringValue(rec.Signature),
	}), nil
}

func signResponse(res *zpass.SignResponse) *structpb.Struct {
	return response(map[string]*structpb.Value{
		"signature": structpb.NewStringValue(res.Signature),
		"hash":      structpb.NewStringValue(res.Hash),
		"address":   structpb.NewStringValue(res.Address),
		"receipt":   structpb.NewStringValue(res.Receipt),
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// UnaryInterceptor tags every call with a request ID, returns it in the
// x-request-id header and logs the outcome.
func UnaryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := uuid.NewString()
		ctx = context.WithValue(ctx, requestIDKey{}, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			log.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("rpc", fields...)
		}
		return resp, err
	}
}
