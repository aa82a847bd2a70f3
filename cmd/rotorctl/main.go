package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/config"
	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError marks errors that should exit with status 2.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close()

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "rotorctl: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) || strings.HasPrefix(err.Error(), "unknown command") {
			return 2
		}
		return 1
	}
	return 0
}

// app holds state shared by subcommands; everything is resolved lazily so
// commands that need no config never read it.
type app struct {
	cfg     *config.Config
	keys    *keyring.Manager
	logger  *logging.AuditLogger
	service *cipher.Service
}

func (a *app) config() (config.Config, error) {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		a.cfg = &cfg
	}
	return *a.cfg, nil
}

func (a *app) auditLogger() (*logging.AuditLogger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AuditLog) == "" {
		a.logger = logging.Discard()
		return a.logger, nil
	}
	logger, err := logging.NewAuditLogger("rotorctl", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a.logger = logger.WithSession()
	return a.logger, nil
}

func (a *app) keyring() (*keyring.Manager, error) {
	if a.keys != nil {
		return a.keys, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	keys := keyring.NewManager(cfg.KeyringDir)
	if err := keys.Load(); err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}
	a.keys = keys
	return keys, nil
}

func (a *app) cipherService() (*cipher.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	alpha, err := enigma.ParseAlphabet(cfg.DefaultAlphabet)
	if err != nil {
		return nil, err
	}
	keys, err := a.keyring()
	if err != nil {
		return nil, err
	}
	logger, err := a.auditLogger()
	if err != nil {
		return nil, err
	}
	a.service = cipher.NewService(
		cipher.WithKeyResolver(keys),
		cipher.WithLogger(logger),
		cipher.WithDefaultAlphabet(alpha),
	)
	return a.service, nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rotorctl",
		Short:         "Encode, decode and manage keys for the rotor cipher",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newKeysCmd(a),
		newOpsCmd(),
		newPipelineCmd(a),
		newRemoteCmd(a),
		newSelfUpdateCmd(a),
		newVersionCmd(),
	)
	return root
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
