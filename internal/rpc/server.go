package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
)

// Request and response field names.
const (
	FieldInput       = "input"
	FieldProfile     = "profile"
	FieldOutput      = "output"
	FieldEnciphered  = "enciphered"
	FieldPassthrough = "passthrough"
	FieldOperations  = "operations"
)

// Server implements the rotor.v1.Cipher service on top of a cipher.Service.
type Server struct {
	service *cipher.Service
}

// NewServer constructs a gRPC service backed by svc.
func NewServer(svc *cipher.Service) *Server {
	if svc == nil {
		svc = cipher.NewService()
	}
	return &Server{service: svc}
}

// Encode enciphers the request's input.
func (s *Server) Encode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.message(ctx, req, s.service.Encode)
}

// Decode deciphers the request's input.
func (s *Server) Decode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.message(ctx, req, s.service.Decode)
}

// ListOperations describes the registered pipeline operations.
func (s *Server) ListOperations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	infos := cipher.DescribeOperations()
	ops := make([]any, 0, len(infos))
	for _, info := range infos {
		ops = append(ops, map[string]any{
			"name":        info.Name,
			"type":        info.Type,
			"description": info.Description,
			"reversible":  info.Reversible,
		})
	}
	out, err := structpb.NewStruct(map[string]any{FieldOperations: ops})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) message(ctx context.Context, req *structpb.Struct, run func(context.Context, cipher.Request) (cipher.Result, error)) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	fields := req.AsMap()
	input, ok := fields[FieldInput].(string)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "input is required")
	}
	profile, _ := fields[FieldProfile].(string)
	delete(fields, FieldInput)
	delete(fields, FieldProfile)
	if strings.TrimSpace(profile) == "" && len(fields) == 0 {
		return nil, status.Error(codes.InvalidArgument, "profile or key is required")
	}

	res, err := run(ctx, cipher.Request{Input: input, Profile: profile, Params: fields})
	if err != nil {
		return nil, statusFromError(err, res.Output)
	}
	out, err := structpb.NewStruct(map[string]any{
		FieldOutput:      res.Output,
		FieldEnciphered:  res.Enciphered,
		FieldPassthrough: res.Passthrough,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// statusFromError maps domain errors onto gRPC codes. Key and desync
// failures carry a Struct detail so clients can rebuild the typed error.
func statusFromError(err error, partial string) error {
	var (
		code    codes.Code
		details map[string]any
		keyErr  *enigma.KeyError
		desync  *enigma.DesyncError
	)
	switch {
	case errors.As(err, &keyErr):
		code = codes.InvalidArgument
		details = map[string]any{"param": keyErr.Param, "value": fmt.Sprint(keyErr.Value), "reason": keyErr.Reason}
	case errors.As(err, &desync):
		code = codes.FailedPrecondition
		details = map[string]any{"position": desync.Position, "symbol": string(desync.Symbol), FieldOutput: partial}
	case errors.Is(err, keyring.ErrProfileNotFound), errors.Is(err, cipher.ErrUnknownOperation):
		code = codes.NotFound
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.FailedPrecondition
	}

	st := status.New(code, err.Error())
	if details != nil {
		detail, derr := structpb.NewStruct(details)
		if derr == nil {
			if withDetails, werr := st.WithDetails(detail); werr == nil {
				st = withDetails
			}
		}
	}
	return st.Err()
}
