package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/RowanDark/rotor/internal/cipher"
	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/keyring"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error    string `json:"error"`
	Param    string `json:"param,omitempty"`
	Position *int   `json:"position,omitempty"`
	Output   string `json:"output,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, enigma.ErrInvalidKey), errors.Is(err, keyring.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, cipher.ErrUnknownOperation), errors.Is(err, keyring.ErrProfileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, partial string) {
	resp := ErrorResponse{Error: err.Error()}
	var keyErr *enigma.KeyError
	if errors.As(err, &keyErr) {
		resp.Param = keyErr.Param
	}
	var desync *enigma.DesyncError
	if errors.As(err, &desync) {
		pos := desync.Position
		resp.Position = &pos
		resp.Output = partial
	}
	s.writeJSON(w, statusFor(err), resp)
}
