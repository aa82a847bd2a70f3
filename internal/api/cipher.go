package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/RowanDark/rotor/internal/cipher"
)

// MessageRequest names the message and its key, either as a stored profile
// or as inline parameters (alphabet, offsets, plugboard).
type MessageRequest struct {
	Input   string                 `json:"input"`
	Profile string                 `json:"profile,omitempty"`
	Key     map[string]interface{} `json:"key,omitempty"`
}

// MessageResponse represents the result of an encode or decode.
type MessageResponse struct {
	Output      string `json:"output"`
	Enciphered  int    `json:"enciphered"`
	Passthrough int    `json:"passthrough"`
}

// PipelineRequest represents a request to execute a pipeline of operations
type PipelineRequest struct {
	Input      string                   `json:"input"`
	Operations []cipher.OperationConfig `json:"operations"`
}

// PipelineResponse represents the result of a pipeline execution
type PipelineResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	s.handleMessage(w, r, s.service.Encode)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	s.handleMessage(w, r, s.service.Decode)
}

type messageFunc func(ctx context.Context, req cipher.Request) (cipher.Result, error)

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, run messageFunc) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Profile == "" && len(req.Key) == 0 {
		http.Error(w, "profile or key is required", http.StatusBadRequest)
		return
	}

	res, err := run(r.Context(), cipher.Request{Input: req.Input, Profile: req.Profile, Params: req.Key})
	if err != nil {
		s.writeError(w, err, res.Output)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{
		Output:      res.Output,
		Enciphered:  res.Enciphered,
		Passthrough: res.Passthrough,
	})
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Operations) == 0 {
		http.Error(w, "operations field is required and must not be empty", http.StatusBadRequest)
		return
	}

	out, err := s.service.RunPipeline(r.Context(), &cipher.Pipeline{Operations: req.Operations}, []byte(req.Input))
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, PipelineResponse{Output: string(out)})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": cipher.DescribeOperations()})
}
