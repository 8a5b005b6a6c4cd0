package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tfcanon/tfcanon/internal/graph"
	"github.com/tfcanon/tfcanon/internal/scanner"
	"github.com/tfcanon/tfcanon/internal/transform"
	"github.com/tfcanon/tfcanon/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTransform converts in-memory configuration files to the canonical
// envelope. The body is a request manifest (JSON or YAML):
//
//	{"files": [{"path": "main.tf", "content": "..."}],
//	 "options": {"include_ignored": true}}
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	req, err := transform.DecodeRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), scanner.Request{
		Files:          req.Files,
		IncludeIgnored: req.Options.IncludeIgnored,
	})
	if err != nil {
		s.logger.Error("transform failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Canonical)
	_, _ = w.Write([]byte("\n"))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		limit, _ = strconv.Atoi(q)
	}
	snaps, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) snapshotID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	id, ok := s.snapshotID(w, r)
	if !ok {
		return
	}
	snap, err := s.store.GetSnapshot(r.Context(), id)
	if err != nil {
		s.logger.Error("getting snapshot", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshotEnvelope(w http.ResponseWriter, r *http.Request) {
	id, ok := s.snapshotID(w, r)
	if !ok {
		return
	}
	snap, err := s.store.GetSnapshot(r.Context(), id)
	if err != nil {
		s.logger.Error("getting snapshot", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes.TrimSpace(snap.Envelope))
	_, _ = w.Write([]byte("\n"))
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from query parameter required")
		return
	}
	to, err := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to query parameter required")
		return
	}
	diff, err := s.store.Diff(r.Context(), from, to)
	if err != nil {
		s.logger.Error("diffing snapshots", "from", from, "to", to, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address required")
		return
	}
	result, err := s.engine.Impact(r.Context(), 0, address)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeps(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address required")
		return
	}
	deps, err := s.engine.Deps(r.Context(), 0, address)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "depends_on": deps})
}

func (s *Server) latestRecords(w http.ResponseWriter, r *http.Request) ([]models.Record, bool) {
	snap, err := s.store.LatestSnapshot(r.Context(), "")
	if err != nil {
		s.logger.Error("loading latest snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshots stored")
		return nil, false
	}
	records, err := s.store.ListRecords(r.Context(), snap.ID)
	if err != nil {
		s.logger.Error("listing records", "snapshot", snap.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return records, true
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	records, ok := s.latestRecords(w, r)
	if !ok {
		return
	}
	out, err := graph.ExportJSON(records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(out))
	_, _ = w.Write([]byte("\n"))
}

func (s *Server) handleExportDOT(w http.ResponseWriter, r *http.Request) {
	records, ok := s.latestRecords(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(graph.ExportDOT(records)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("loading stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleScan re-runs all configured sources, saving a snapshot per source.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	results := s.runner.RunConfigured(r.Context())
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		out = append(out, map[string]any{
			"snapshot_id":  res.SnapshotID,
			"hash":         res.Hash,
			"resources":    res.Resources,
			"data_sources": res.Data,
			"ignored":      res.Ignored,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
