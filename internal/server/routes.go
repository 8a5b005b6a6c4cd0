package server

import "net/http"

// RegisterRoutes registers all API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/transform", s.handleTransform)
	mux.HandleFunc("GET /api/v1/snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /api/v1/snapshots/{id}", s.handleSnapshotByID)
	mux.HandleFunc("GET /api/v1/snapshots/{id}/envelope", s.handleSnapshotEnvelope)
	mux.HandleFunc("GET /api/v1/diff", s.handleDiff)
	mux.HandleFunc("GET /api/v1/impact/{address...}", s.handleImpact)
	mux.HandleFunc("GET /api/v1/deps/{address...}", s.handleDeps)
	mux.HandleFunc("GET /api/v1/export/json", s.handleExportJSON)
	mux.HandleFunc("GET /api/v1/export/dot", s.handleExportDOT)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)

	if !s.readOnly {
		mux.HandleFunc("POST /api/v1/scan", s.handleScan)
	}
}
