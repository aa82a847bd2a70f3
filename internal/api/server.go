package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/observability/metrics"
)

// Config configures the REST API.
type Config struct {
	Service *cipher.Service
	Keyring *keyring.Manager
	Logger  *logging.AuditLogger
}

// Server exposes the rotor engine, pipelines and keyring over JSON.
type Server struct {
	service *cipher.Service
	keys    *keyring.Manager
	logger  *logging.AuditLogger
	mux     *http.ServeMux
}

// NewServer constructs the REST API using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("cipher service is required")
	}
	if cfg.Keyring == nil {
		return nil, errors.New("keyring is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		service: cfg.Service,
		keys:    cfg.Keyring,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	metrics.SetKeyringProfiles(s.keys.Len())
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("/api/v1/encode", s.instrument("encode", s.handleEncode))
	s.mux.Handle("/api/v1/decode", s.instrument("decode", s.handleDecode))
	s.mux.Handle("/api/v1/pipeline", s.instrument("pipeline", s.handlePipeline))
	s.mux.Handle("/api/v1/operations", s.instrument("operations", s.handleListOperations))
	s.mux.Handle("/api/v1/keys", s.instrument("keys", s.handleKeys))
	s.mux.Handle("/api/v1/keys/", s.instrument("key", s.handleKeyByName))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.ObserveRequest("http", route, strconv.Itoa(rec.status), time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = s.logger.Emit(logging.AuditEvent{EventType: logging.EventRPCCall, Decision: logging.DecisionDeny, Reason: err.Error()})
	}
}
