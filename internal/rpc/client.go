package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/enigma"
)

// MessageRequest names a message and its key. Profile takes precedence over
// the inline key fields.
type MessageRequest struct {
	Input     string
	Profile   string
	Alphabet  string
	Offsets   []int
	Plugboard string
}

// MessageResponse is the result of a remote encode or decode.
type MessageResponse struct {
	Output      string
	Enciphered  int
	Passthrough int
}

// Client calls a remote rotor.v1.Cipher service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Encode enciphers req remotely.
func (c *Client) Encode(ctx context.Context, req MessageRequest, opts ...grpc.CallOption) (MessageResponse, error) {
	return c.message(ctx, encodeMethod, req, opts...)
}

// Decode deciphers req remotely. A desynchronised decode returns the
// partial output with an *enigma.DesyncError.
func (c *Client) Decode(ctx context.Context, req MessageRequest, opts ...grpc.CallOption) (MessageResponse, error) {
	return c.message(ctx, decodeMethod, req, opts...)
}

// ListOperations fetches the remote operation catalogue.
func (c *Client) ListOperations(ctx context.Context, opts ...grpc.CallOption) ([]cipher.OperationInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, listOperationsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	raw, _ := out.AsMap()[FieldOperations].([]any)
	infos := make([]cipher.OperationInfo, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		info := cipher.OperationInfo{}
		info.Name, _ = m["name"].(string)
		info.Type, _ = m["type"].(string)
		info.Description, _ = m["description"].(string)
		info.Reversible, _ = m["reversible"].(bool)
		infos = append(infos, info)
	}
	return infos, nil
}

func (c *Client) message(ctx context.Context, method string, req MessageRequest, opts ...grpc.CallOption) (MessageResponse, error) {
	fields := map[string]any{FieldInput: req.Input}
	if req.Profile != "" {
		fields[FieldProfile] = req.Profile
	} else {
		if req.Alphabet != "" {
			fields[cipher.ParamAlphabet] = req.Alphabet
		}
		if len(req.Offsets) > 0 {
			offsets := make([]any, len(req.Offsets))
			for i, o := range req.Offsets {
				offsets[i] = o
			}
			fields[cipher.ParamOffsets] = offsets
		}
		if req.Plugboard != "" {
			fields[cipher.ParamPlugboard] = req.Plugboard
		}
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return MessageResponse{}, fmt.Errorf("build request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out, opts...); err != nil {
		return errorFromStatus(err)
	}
	m := out.AsMap()
	resp := MessageResponse{}
	resp.Output, _ = m[FieldOutput].(string)
	resp.Enciphered = intField(m, FieldEnciphered)
	resp.Passthrough = intField(m, FieldPassthrough)
	return resp, nil
}

// errorFromStatus rebuilds typed engine errors from status details.
func errorFromStatus(err error) (MessageResponse, error) {
	st, ok := status.FromError(err)
	if !ok {
		return MessageResponse{}, err
	}
	var detail map[string]any
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			detail = s.AsMap()
			break
		}
	}
	if detail == nil {
		return MessageResponse{}, err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		param, _ := detail["param"].(string)
		reason, _ := detail["reason"].(string)
		return MessageResponse{}, &enigma.KeyError{Param: param, Value: detail["value"], Reason: reason}
	case codes.FailedPrecondition:
		symbol, _ := detail["symbol"].(string)
		partial, _ := detail[FieldOutput].(string)
		desync := &enigma.DesyncError{Position: intField(detail, "position")}
		if r := []rune(symbol); len(r) > 0 {
			desync.Symbol = r[0]
		}
		return MessageResponse{Output: partial}, desync
	}
	return MessageResponse{}, err
}

func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
