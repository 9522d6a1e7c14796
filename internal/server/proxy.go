package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/metisguard/metis/internal/proxy"
)

type proxyResponse struct {
	Target     string `json:"target"`
	Authorized bool   `json:"authorized"`
	StatusCode int    `json:"status_code"`
	Relayed    bool   `json:"relayed"`
}

// handleProxy is the traffic classifier pass-through. The calling agent
// identifies itself with X-Agent-ID and names the real destination with
// X-Target-URL (or ?target=). The call is relayed and classified; the
// caller gets the classification verdict and upstream status back.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	agentID := r.Header.Get("X-Agent-ID")
	if agentID == "" {
		http.Error(w, "missing X-Agent-ID header", http.StatusBadRequest)
		return
	}

	target := r.Header.Get("X-Target-URL")
	if target == "" {
		target = r.URL.Query().Get("target")
	}
	if target == "" {
		http.Error(w, "missing X-Target-URL header or target query parameter", http.StatusBadRequest)
		return
	}

	result, err := s.classifier.ClassifyAndRelay(r.Context(), agentID, target, r.Method, r.Header.Get("User-Agent"))
	if err != nil && !errors.Is(err, proxy.ErrRelay) {
		log.Error().Err(err).Str("target", target).Msg("proxy classification failed")
		http.Error(w, "classification failed", http.StatusInternalServerError)
		return
	}

	resp := proxyResponse{
		Target:     target,
		Authorized: result.Authorized,
		StatusCode: result.StatusCode,
		Relayed:    err == nil,
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
