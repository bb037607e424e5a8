package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"xdao.co/zpass/receipt"
	"xdao.co/zpass/zerr"
)

// Trailer keys that carry the structured error across the wire.
const (
	trailerKind = "zpass-kind"
	trailerRule = "zpass-rule"
)

// codeFor maps an error kind to the status code callers see.
func codeFor(kind zerr.Kind) codes.Code {
	switch kind {
	case zerr.KindTypeParse, zerr.KindIdentifier, zerr.KindInput, zerr.KindMerkle:
		return codes.InvalidArgument
	case zerr.KindCrypto:
		return codes.FailedPrecondition
	case zerr.KindSelfVerification:
		return codes.Internal
	}
	return codes.Unknown
}

// toStatus converts err to a gRPC status and attaches kind and rule as
// trailers when ctx belongs to a live call.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, receipt.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	kind, ok := zerr.KindOf(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	_ = grpc.SetTrailer(ctx, metadata.Pairs(trailerKind, string(kind), trailerRule, zerr.RuleID(err)))
	return status.Error(codeFor(kind), err.Error())
}

// fromStatus rebuilds a structured error from a failed call. trailer is the
// metadata captured with grpc.Trailer.
func fromStatus(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() == codes.NotFound {
		return receipt.ErrNotFound
	}
	kinds, rules := trailer.Get(trailerKind), trailer.Get(trailerRule)
	if len(kinds) == 0 || len(rules) == 0 {
		return err
	}
	return zerr.New(zerr.Kind(kinds[0]), rules[0], st.Message())
}
