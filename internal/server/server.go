// Package server runs the rotor daemon: one cleartext HTTP/2 listener that
// carries both gRPC and the JSON API, plus an optional metrics listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/RowanDark/rotor/internal/api"
	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/observability/metrics"
	"github.com/RowanDark/rotor/internal/rpc"
)

const defaultShutdownTimeout = 5 * time.Second

// Config configures the daemon listeners.
type Config struct {
	Addr            string
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

// Server multiplexes gRPC and HTTP on one listener.
type Server struct {
	cfg     Config
	grpc    *grpc.Server
	api     *api.Server
	handler http.Handler
	logger  *logging.AuditLogger
}

// New wires the gRPC service and HTTP API around svc and keys.
func New(cfg Config, svc *cipher.Service, keys *keyring.Manager, logger *logging.AuditLogger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	apiServer, err := api.NewServer(api.Config{
		Service: svc,
		Keyring: keys,
		Logger:  logger.WithComponent("api"),
	})
	if err != nil {
		return nil, fmt.Errorf("configure api: %w", err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.UnaryServerInterceptor(logger.WithComponent("rpc"))))
	rpc.RegisterCipherServer(grpcServer, rpc.NewServer(svc))

	s := &Server{cfg: cfg, grpc: grpcServer, api: apiServer, logger: logger}
	s.handler = h2c.NewHandler(http.HandlerFunc(s.route), &http2.Server{})
	return s, nil
}

// Handler returns the combined gRPC and HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	if r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") {
		s.grpc.ServeHTTP(w, r)
		return
	}
	s.api.ServeHTTP(w, r)
}

// Run listens on the configured addresses and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		return errors.New("server address must be provided")
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	var metricsLis net.Listener
	if maddr := strings.TrimSpace(s.cfg.MetricsAddr); maddr != "" {
		metricsLis, err = net.Listen("tcp", maddr)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("listen on %s: %w", maddr, err)
		}
	}
	return s.Serve(ctx, lis, metricsLis)
}

// Serve serves on the given listeners until ctx is cancelled or a listener
// fails. metricsLis may be nil.
func (s *Server) Serve(ctx context.Context, lis, metricsLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	servers := []*http.Server{{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}}
	listeners := []net.Listener{lis}
	if metricsLis != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		listeners = append(listeners, metricsLis)
	}

	for i := range servers {
		srv, l := servers[i], listeners[i]
		s.lifecycle("listening", l.Addr().String())
		g.Go(func() error {
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		s.grpc.Stop()
		s.lifecycle("stopped", lis.Addr().String())
		return nil
	})

	return g.Wait()
}

func (s *Server) lifecycle(state, addr string) {
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"state": state, "addr": addr},
	})
}
