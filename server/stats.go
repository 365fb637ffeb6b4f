package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Shot listing limits for /api/shots
const (
	defaultShotLimit = 50
	maxShotLimit     = 500
)

// StatsResponse is the body of /api/stats
type StatsResponse struct {
	Sessions        int64    `json:"sessions"`
	Solutions       int64    `json:"solutions"`
	Fired           int64    `json:"fired"`
	Invalid         int64    `json:"invalid"`
	DroppedShots    int64    `json:"droppedShots"`
	RecordFailures  int64    `json:"recordFailures"`
	Policy          string   `json:"policy"`
	AimToleranceDeg *float64 `json:"aimToleranceDeg"`
	Lead            bool     `json:"lead"`
}

// Stats returns a snapshot of the server counters
func (s *Server) Stats() StatsResponse {
	policy := s.Policy()
	return StatsResponse{
		Sessions:        s.stats.sessions.Load(),
		Solutions:       s.stats.solutions.Load(),
		Fired:           s.stats.fired.Load(),
		Invalid:         s.stats.invalid.Load(),
		DroppedShots:    s.stats.droppedShots.Load(),
		RecordFailures:  s.stats.recordFailures.Load(),
		Policy:          policy.Power.String(),
		AimToleranceDeg: aimToleranceDeg(policy),
		Lead:            policy.Lead,
	}
}

// HandleStats serves the server counters as JSON
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// HandleShots serves the most recent recorded shots as JSON
func (s *Server) HandleShots(w http.ResponseWriter, r *http.Request) {
	if s.shots == nil {
		http.Error(w, "shot recorder disabled", http.StatusNotFound)
		return
	}

	limit := defaultShotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxShotLimit)
	}

	shots, err := s.shots.RecentShots(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list shots")
		http.Error(w, "failed to list shots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shots)
}

// HandleShotSummary serves per-session shot totals as JSON
func (s *Server) HandleShotSummary(w http.ResponseWriter, r *http.Request) {
	if s.shots == nil {
		http.Error(w, "shot recorder disabled", http.StatusNotFound)
		return
	}

	summary, err := s.shots.Summarize(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to summarize shots")
		http.Error(w, "failed to summarize shots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleHealth reports liveness
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
