package cipher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/observability/metrics"
)

// ParamProfile names a stored key instead of inline key parameters.
const ParamProfile = "profile"

// KeyResolver looks up stored keys by profile name.
type KeyResolver interface {
	Key(name string) (enigma.Key, error)
}

// Request is one message to encode or decode. Profile takes precedence over
// the inline Params.
type Request struct {
	Input   string
	Profile string
	Params  map[string]interface{}
}

// Result carries the transformed message and per-message counts.
type Result struct {
	Output      string
	Enciphered  int
	Passthrough int
	Duration    time.Duration
}

// Service runs messages and pipelines with metrics and audit events. It is
// shared by the HTTP, gRPC and CLI front ends.
type Service struct {
	keys            KeyResolver
	logger          *logging.AuditLogger
	defaultAlphabet enigma.Alphabet
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithKeyResolver enables profile lookups.
func WithKeyResolver(keys KeyResolver) ServiceOption {
	return func(s *Service) { s.keys = keys }
}

// WithLogger sets the audit logger. The default discards events.
func WithLogger(logger *logging.AuditLogger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultAlphabet sets the alphabet used when a request names none.
func WithDefaultAlphabet(a enigma.Alphabet) ServiceOption {
	return func(s *Service) { s.defaultAlphabet = a }
}

// NewService constructs a Service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{logger: logging.Discard(), defaultAlphabet: enigma.Uppercase}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveKey returns the key a request refers to.
func (s *Service) ResolveKey(req Request) (enigma.Key, error) {
	if name := strings.TrimSpace(req.Profile); name != "" {
		if s.keys == nil {
			return enigma.Key{}, fmt.Errorf("%w: %s (no keyring configured)", keyring.ErrProfileNotFound, name)
		}
		return s.keys.Key(name)
	}
	return KeyFromParams(s.withDefaultAlphabet(req.Params))
}

// withDefaultAlphabet returns params, or a copy carrying the default
// alphabet when params names none.
func (s *Service) withDefaultAlphabet(params map[string]interface{}) map[string]interface{} {
	if _, ok := params[ParamAlphabet]; ok {
		return params
	}
	out := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[ParamAlphabet] = s.defaultAlphabet
	return out
}

// Encode enciphers req.Input with a fresh engine.
func (s *Service) Encode(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, req, enigma.Encrypt)
}

// Decode deciphers req.Input with a fresh engine. On desynchronisation the
// partial output is returned alongside the error.
func (s *Service) Decode(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, req, enigma.Decrypt)
}

// Transform streams src to dst with a fresh engine. The returned Result has
// no Output; its counts cover the symbols consumed.
func (s *Service) Transform(ctx context.Context, req Request, dir enigma.Direction, dst io.Writer, src io.Reader) (Result, error) {
	engine, key, err := s.engine(ctx, req)
	if err != nil {
		return Result{}, err
	}
	start := time.Now()
	_, err = engine.Transform(dst, src, dir)
	return s.finish(req, key, engine, dir, Result{Duration: time.Since(start)}, err)
}

func (s *Service) run(ctx context.Context, req Request, dir enigma.Direction) (Result, error) {
	engine, key, err := s.engine(ctx, req)
	if err != nil {
		return Result{}, err
	}
	start := time.Now()
	var res Result
	if dir == enigma.Encrypt {
		res.Output = engine.Encode(req.Input)
	} else {
		res.Output, err = engine.Decode(req.Input)
	}
	res.Duration = time.Since(start)
	return s.finish(req, key, engine, dir, res, err)
}

func (s *Service) engine(ctx context.Context, req Request) (*enigma.Engine, enigma.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, enigma.Key{}, err
	}
	key, err := s.ResolveKey(req)
	if err != nil {
		s.reject(req.Profile, err)
		return nil, key, err
	}
	engine, err := enigma.New(key)
	if err != nil {
		s.reject(req.Profile, err)
		return nil, key, err
	}
	return engine, key, nil
}

// finish records metrics and the audit event for one message.
func (s *Service) finish(req Request, key enigma.Key, engine *enigma.Engine, dir enigma.Direction, res Result, err error) (Result, error) {
	res.Enciphered = engine.Processed()
	res.Passthrough = engine.Passed()

	if err != nil {
		var desync *enigma.DesyncError
		if errors.As(err, &desync) {
			metrics.RecordDesync()
			_ = s.logger.Emit(logging.AuditEvent{
				EventType: logging.EventDesyncDetected,
				Decision:  logging.DecisionDeny,
				Reason:    err.Error(),
				Metadata:  map[string]any{"position": desync.Position, "profile": req.Profile},
			})
		}
		return res, err
	}

	metrics.RecordMessage(dir.String(), res.Enciphered, res.Passthrough)
	event := logging.EventMessageEncoded
	if dir == enigma.Decrypt {
		event = logging.EventMessageDecoded
	}
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: event,
		Decision:  logging.DecisionAllow,
		Metadata: map[string]any{
			"profile":     req.Profile,
			"alphabet":    key.Alphabet.String(),
			"rotors":      key.Rotors(),
			"enciphered":  res.Enciphered,
			"passthrough": res.Passthrough,
		},
	})
	return res, nil
}

// RunPipeline executes p. Steps may carry a "profile" parameter which is
// expanded into the stored key's parameters.
func (s *Service) RunPipeline(ctx context.Context, p *Pipeline, input []byte) ([]byte, error) {
	resolved, err := s.expandProfiles(p)
	if err != nil {
		s.reject("", err)
		return nil, err
	}
	out, err := resolved.Execute(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, enigma.ErrInvalidKey):
			s.reject("", err)
		case errors.Is(err, enigma.ErrDesynchronized):
			metrics.RecordDesync()
			_ = s.logger.Emit(logging.AuditEvent{EventType: logging.EventDesyncDetected, Decision: logging.DecisionDeny, Reason: err.Error()})
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) expandProfiles(p *Pipeline) (*Pipeline, error) {
	out := &Pipeline{Reversible: p.Reversible, Operations: make([]OperationConfig, len(p.Operations))}
	for i, step := range p.Operations {
		out.Operations[i] = step
		name, ok := step.Parameters[ParamProfile].(string)
		if !ok || strings.TrimSpace(name) == "" {
			if isRotorStep(step.Name) {
				out.Operations[i].Parameters = s.withDefaultAlphabet(step.Parameters)
			}
			continue
		}
		key, err := s.ResolveKey(Request{Profile: name})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out.Operations[i].Parameters = ParamsFromKey(key)
	}
	return out, nil
}

func isRotorStep(name string) bool {
	op, ok := GetOperation(name)
	if !ok {
		return false
	}
	switch op.(type) {
	case *RotorEncodeOp, *RotorDecodeOp:
		return true
	}
	return false
}

func (s *Service) reject(profile string, err error) {
	if errors.Is(err, enigma.ErrInvalidKey) {
		metrics.RecordInvalidKey()
	}
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventKeyRejected,
		Decision:  logging.DecisionDeny,
		Reason:    err.Error(),
		Metadata:  map[string]any{"profile": profile},
	})
}
