// JSON admin API exposing live statistics, aggregates, and recent threats
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swarmwatch/internal/detect"
	"swarmwatch/internal/stats"
	"swarmwatch/internal/telemetry"
)

// Stats provides the live counters and aggregates served by the API.
type Stats interface {
	Statistics() stats.Snapshot
	ThermoSnapshot() []telemetry.SwarmThermodynamics
}

// ThreatLog serves recent detections, newest first.
type ThreatLog interface {
	Recent(n int) []detect.Threat
}

// Server is the admin HTTP endpoint. All routes are read-only JSON.
type Server struct {
	stats   Stats
	threats ThreatLog
	mux     *http.ServeMux
	srv     *http.Server
}

// NewServer builds the admin server. threats may be nil; /threats/recent
// then serves an empty list.
func NewServer(stats Stats, threats ThreatLog) *Server {
	s := &Server{stats: stats, threats: threats, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/statistics", s.handleStatistics)
	s.mux.HandleFunc("/thermo", s.handleThermo)
	s.mux.HandleFunc("/threats/recent", s.handleRecentThreats)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the route table for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves the API on addr, blocking until shutdown.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	return s.srv.ListenAndServe()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.stats.Statistics())
}

func (s *Server) handleThermo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.stats.ThermoSnapshot())
}

func (s *Server) handleRecentThreats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	var list []detect.Threat
	if s.threats != nil {
		list = s.threats.Recent(limit)
	}
	if list == nil {
		list = []detect.Threat{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
