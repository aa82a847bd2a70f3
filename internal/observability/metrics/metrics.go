// Package metrics exposes Prometheus collectors for the rotor engine and the
// services that front it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	symbols = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotor_symbols_total",
		Help: "Symbols processed by rotor engines, split by direction and whether they were enciphered or passed through.",
	}, []string{"direction", "kind"})

	messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotor_messages_total",
		Help: "Messages processed by rotor engines.",
	}, []string{"direction"})

	desyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotor_desync_errors_total",
		Help: "Decodes aborted because the rotor chain could not be inverted.",
	})

	invalidKeys = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotor_invalid_keys_total",
		Help: "Engine constructions rejected because of invalid key material.",
	})

	rpcRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotor_rpc_requests_total",
		Help: "RPC and HTTP requests handled, by transport, method and result code.",
	}, []string{"transport", "method", "code"})

	rpcLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rotor_rpc_duration_seconds",
		Help:    "Latency of RPC and HTTP handlers.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"transport", "method"})

	keyringProfiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rotor_keyring_profiles",
		Help: "Number of key profiles loaded in the keyring.",
	})
)

func init() {
	registry.MustRegister(
		symbols, messages, desyncs, invalidKeys, rpcRequests, rpcLatency, keyringProfiles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the metrics registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Registry exposes the underlying registry for tests and embedding.
func Registry() *prometheus.Registry { return registry }

// RecordMessage accounts for one processed message.
func RecordMessage(direction string, enciphered, passthrough int) {
	messages.WithLabelValues(direction).Inc()
	symbols.WithLabelValues(direction, "cipher").Add(float64(enciphered))
	symbols.WithLabelValues(direction, "passthrough").Add(float64(passthrough))
}

func RecordDesync() { desyncs.Inc() }

func RecordInvalidKey() { invalidKeys.Inc() }

// ObserveRequest records one handled request and its latency.
func ObserveRequest(transport, method, code string, dur time.Duration) {
	rpcRequests.WithLabelValues(transport, method, code).Inc()
	rpcLatency.WithLabelValues(transport, method).Observe(dur.Seconds())
}

func SetKeyringProfiles(n int) { keyringProfiles.Set(float64(n)) }
