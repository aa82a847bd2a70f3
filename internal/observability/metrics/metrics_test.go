package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExportsMetrics(t *testing.T) {
	RecordMessage("encode", 3, 1)
	RecordDesync()
	RecordInvalidKey()
	ObserveRequest("grpc", "Encode", "OK", 2*time.Millisecond)
	SetKeyringProfiles(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()

	Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	required := []string{
		"# HELP rotor_symbols_total",
		"# HELP rotor_desync_errors_total",
		"# HELP rotor_rpc_duration_seconds",
		"rotor_keyring_profiles 2",
	}
	for _, metric := range required {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected metric %q to be exported, got %q", metric, body)
		}
	}
}

func TestRecordMessageSplitsSymbols(t *testing.T) {
	before := testutil.ToFloat64(symbols.WithLabelValues("decode", "passthrough"))
	RecordMessage("decode", 10, 4)
	after := testutil.ToFloat64(symbols.WithLabelValues("decode", "passthrough"))
	if after-before != 4 {
		t.Fatalf("expected 4 passthrough symbols recorded, got %v", after-before)
	}
}

func TestRegistryIncludesRuntimeCollectors(t *testing.T) {
	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"go_goroutines", "rotor_keyring_profiles"} {
		if !names[want] {
			t.Fatalf("expected %s in registry", want)
		}
	}
}
