package rpc

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
)

func startTestServer(t *testing.T) (*Client, *bytes.Buffer) {
	t.Helper()
	var audit bytes.Buffer
	logger, err := logging.NewAuditLogger("rpc-test", logging.WithoutStdout(), logging.WithWriter(&audit))
	require.NoError(t, err)

	keys := keyring.NewManager("")
	require.NoError(t, keys.Save(&keyring.Profile{Name: "field", Alphabet: "upper", Offsets: []int{5, 12, 1}}))
	svc := cipher.NewService(cipher.WithKeyResolver(keys))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryServerInterceptor(logger)))
	RegisterCipherServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), &audit
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := testContext(t)

	enc, err := client.Encode(ctx, MessageRequest{Input: "BASILIA EDIEGO", Profile: "field"})
	require.NoError(t, err)
	assert.Equal(t, "TTMDHFY DDJGJS", enc.Output)
	assert.Equal(t, 13, enc.Enciphered)
	assert.Equal(t, 1, enc.Passthrough)

	dec, err := client.Decode(ctx, MessageRequest{Input: enc.Output, Alphabet: "upper", Offsets: []int{5, 12, 1}})
	require.NoError(t, err)
	assert.Equal(t, "BASILIA EDIEGO", dec.Output)
}

func TestInlineKeyWithPlugboard(t *testing.T) {
	client, _ := startTestServer(t)
	resp, err := client.Encode(testContext(t), MessageRequest{
		Input:     "ab\tc~\n",
		Alphabet:  "printable",
		Offsets:   []int{5, 25, 0, 12},
		Plugboard: "a~",
	})
	require.NoError(t, err)
	assert.Equal(t, "I.\t0/\n", resp.Output)
}

func TestErrorsMapToStatusCodes(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := testContext(t)

	_, err := client.Encode(ctx, MessageRequest{Input: "A", Offsets: []int{1, 26}})
	require.Error(t, err)
	var keyErr *enigma.KeyError
	require.True(t, errors.As(err, &keyErr), err.Error())
	assert.Equal(t, "offsets[1]", keyErr.Param)
	assert.ErrorIs(t, err, enigma.ErrInvalidKey)

	_, err = client.Decode(ctx, MessageRequest{Input: "A", Profile: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Encode(ctx, MessageRequest{Input: "A"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDesyncStatusRoundTrip(t *testing.T) {
	err := statusFromError(&enigma.DesyncError{Position: 3, Symbol: 'C'}, "AB-")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	resp, err := errorFromStatus(err)
	var desync *enigma.DesyncError
	require.True(t, errors.As(err, &desync))
	assert.Equal(t, 3, desync.Position)
	assert.Equal(t, 'C', desync.Symbol)
	assert.Equal(t, "AB-", resp.Output)
	assert.ErrorIs(t, err, enigma.ErrDesynchronized)
}

func TestListOperations(t *testing.T) {
	client, _ := startTestServer(t)
	ops, err := client.ListOperations(testContext(t))
	require.NoError(t, err)

	names := map[string]cipher.OperationInfo{}
	for _, op := range ops {
		names[op.Name] = op
	}
	require.Contains(t, names, "rotor_encode")
	assert.Equal(t, "encrypt", names["rotor_encode"].Type)
	assert.True(t, names["rotor_decode"].Reversible)
}

func TestInterceptorAuditsCalls(t *testing.T) {
	client, audit := startTestServer(t)
	ctx := testContext(t)

	_, err := client.Encode(ctx, MessageRequest{Input: "HELLO", Offsets: []int{0, 0, 0}})
	require.NoError(t, err)
	_, _ = client.Encode(ctx, MessageRequest{Input: "HELLO", Profile: "missing"})

	log := audit.String()
	assert.Contains(t, log, `"event_type":"rpc_call"`)
	assert.Contains(t, log, `"method":"/rotor.v1.Cipher/Encode"`)
	assert.Contains(t, log, `"code":"NotFound"`)
	assert.NotContains(t, log, "HELLO")
}

func TestProfileWithoutKeyringIsNotFound(t *testing.T) {
	srv := NewServer(cipher.NewService())
	req, err := structpb.NewStruct(map[string]interface{}{FieldInput: "A", FieldProfile: "field"})
	require.NoError(t, err)

	_, err = srv.Encode(testContext(t), req)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
