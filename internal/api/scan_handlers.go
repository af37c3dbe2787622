package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/scan"
)

const maxScanLimit = 500

type batchRequest struct {
	Barcodes []string `json:"barcodes"`
	Location string   `json:"location"`
}

func (s *Server) recordScan(w http.ResponseWriter, r *http.Request) {
	var req scan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	out, err := s.deps.Scans.Record(r.Context(), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// listScans handles GET /v1/scans?limit=&all=true. Without parameters it
// returns the recent scans.
func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		scans []domain.ScanHistory
		err   error
	)
	if all, _ := strconv.ParseBool(q.Get("all")); all {
		scans, err = s.deps.Scans.History(r.Context())
	} else {
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			val, convErr := strconv.Atoi(raw)
			if convErr != nil || val <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(val, maxScanLimit)
		}
		scans, err = s.deps.Scans.Recent(r.Context(), limit)
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if scans == nil {
		scans = []domain.ScanHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) deleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Scans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearScans(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Scans.Clear(r.Context()); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	state, err := s.deps.Scans.EnqueueBatch(r.Context(), req.Barcodes, req.Location)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := s.deps.Scans.Batch(id)
	if !ok {
		s.writeAppError(w, r, apperr.RecordNotFound("Batch", id))
		return
	}
	writeJSON(w, http.StatusOK, state)
}
