package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/rpc"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

func TestServeMultiplexesGRPCAndHTTP(t *testing.T) {
	var audit bytes.Buffer
	logger, err := logging.NewAuditLogger("rotord-test", logging.WithoutStdout(), logging.WithWriter(&audit))
	require.NoError(t, err)

	keys := keyring.NewManager("")
	require.NoError(t, keys.Save(&keyring.Profile{Name: "field", Alphabet: "upper", Offsets: []int{5, 12, 1}}))
	svc := cipher.NewService(cipher.WithKeyResolver(keys))

	srv, err := New(Config{ShutdownTimeout: time.Second}, svc, keys, logger)
	require.NoError(t, err)

	lis, metricsLis := listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis, metricsLis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	resp, err := rpc.NewClient(conn).Encode(callCtx, rpc.MessageRequest{Input: "BASILIA", Profile: "field"})
	require.NoError(t, err)
	assert.Equal(t, "TTMDHFY", resp.Output)

	httpResp, err := http.Post("http://"+lis.Addr().String()+"/api/v1/decode", "application/json",
		strings.NewReader(`{"input":"TTMDHFY","profile":"field"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
	assert.Contains(t, string(body), `"output":"BASILIA"`)

	metricsResp, err := http.Get("http://" + metricsLis.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	assert.Contains(t, string(body), "rotor_rpc_requests_total")
	assert.Contains(t, string(body), "rotor_messages_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Contains(t, audit.String(), `"state":"stopped"`)
}

func TestRunRequiresAddress(t *testing.T) {
	srv, err := New(Config{}, cipher.NewService(), keyring.NewManager(""), nil)
	require.NoError(t, err)
	assert.Error(t, srv.Run(context.Background()))
}
