package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/config"
	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/server"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("rotord", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.ServerAddr, "address for the combined gRPC and HTTP listener")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "address for the Prometheus metrics endpoint (empty to disable)")
	keyringDir := fs.String("keyring-dir", cfg.KeyringDir, "directory holding key profiles")
	auditLog := fs.String("audit-log", cfg.AuditLog, "append audit events to this file as well as stdout")
	alphabet := fs.String("alphabet", cfg.DefaultAlphabet, "alphabet used when a request names none")
	shutdown := fs.Duration("shutdown-timeout", 5*time.Second, "grace period for in-flight requests on shutdown")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "rotord takes no positional arguments")
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	alpha, err := enigma.ParseAlphabet(*alphabet)
	if err != nil {
		fmt.Fprintf(stderr, "--alphabet: %v\n", err)
		return 2
	}

	opts := []logging.Option{logging.WithoutStdout(), logging.WithWriter(stdout)}
	if path := strings.TrimSpace(*auditLog); path != "" {
		opts = append(opts, logging.WithFile(path))
	}
	logger, err := logging.NewAuditLogger("rotord", opts...)
	if err != nil {
		fmt.Fprintf(stderr, "configure audit logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	keys := keyring.NewManager(*keyringDir)
	if err := keys.Load(); err != nil {
		_ = logger.Emit(logging.AuditEvent{
			EventType: logging.EventKeyRejected,
			Decision:  logging.DecisionDeny,
			Reason:    err.Error(),
			Metadata:  map[string]any{"keyring_dir": *keyringDir},
		})
		fmt.Fprintf(stderr, "load keyring: %v\n", err)
		return 1
	}
	_ = logger.Emit(logging.AuditEvent{
		EventType: logging.EventKeyLoaded,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"keyring_dir": *keyringDir, "profiles": keys.Len()},
	})

	svc := cipher.NewService(
		cipher.WithKeyResolver(keys),
		cipher.WithLogger(logger.WithComponent("cipher")),
		cipher.WithDefaultAlphabet(alpha),
	)
	srv, err := server.New(server.Config{
		Addr:            *addr,
		MetricsAddr:     *metricsAddr,
		ShutdownTimeout: *shutdown,
	}, svc, keys, logger)
	if err != nil {
		fmt.Fprintf(stderr, "configure server: %v\n", err)
		return 1
	}

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "rotord: %v\n", err)
		return 1
	}
	return 0
}
