package api

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/RowanDark/rotor/internal/keyring"
	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/observability/metrics"
)

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var profiles []*keyring.Profile
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			profiles = s.keys.Search(q)
		} else {
			profiles = s.keys.List()
		}
		if profiles == nil {
			profiles = []*keyring.Profile{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
	case http.MethodPost:
		var p keyring.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.keys.Save(&p); err != nil {
			s.writeError(w, err, "")
			return
		}
		s.keyringChanged("save", p.Name)
		s.writeJSON(w, http.StatusCreated, &p)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleKeyByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/api/v1/keys")
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.keys.Get(name)
		if err != nil {
			s.writeError(w, err, "")
			return
		}
		s.writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.keys.Delete(name); err != nil {
			s.writeError(w, err, "")
			return
		}
		s.keyringChanged("delete", name)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) keyringChanged(action, name string) {
	metrics.SetKeyringProfiles(s.keys.Len())
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventKeyringChange,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"action": action, "profile": name},
	})
}
