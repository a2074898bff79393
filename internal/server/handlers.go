package server

import (
	"encoding/json"
	"net/http"

	"github.com/woozymasta/autojoin/internal/vars"
)

// handleServers returns the latest ranked list, each entry flagged with the join decision.
// Before the first poll cycle completes it answers 503.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest.Load()
	if snap == nil {
		http.Error(w, "No poll cycle completed yet", http.StatusServiceUnavailable)
		return
	}

	resp := serversResponse{
		Taken:   snap.Taken,
		Cycle:   snap.Cycle,
		Failed:  snap.Failed,
		Servers: make([]rankedEntry, 0, len(snap.Servers)),
	}
	for i, srv := range snap.Servers {
		resp.Servers = append(resp.Servers, rankedEntry{
			QueriedServer: srv,
			Rank:          i + 1,
			Players:       srv.Info.RealPlayers(),
			Slots:         srv.Info.AvailableSlots(),
			ShouldJoin:    s.policy.ShouldJoin(srv),
		})
	}

	writeJSON(w, resp)
}

// handleVersion returns the build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, vars.Info())
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
