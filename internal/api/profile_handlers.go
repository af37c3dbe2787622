package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
)

type progressResponse struct {
	domain.UserProgress
	Level    int64 `json:"level"`
	XPTarget int64 `json:"xp_target"`
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.deps.Favorites.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

func (s *Server) getFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	ok, err := s.deps.Favorites.IsFavorite(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "favorite": ok})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Favorites.Add(r.Context(), chi.URLParam(r, "product_id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Favorites.Remove(r.Context(), chi.URLParam(r, "product_id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	up, err := s.deps.Progress.Get(r.Context())
	s.writeProgress(w, r, up, err)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// addCoins handles POST /v1/progress/coins with {"amount": n}.
func (s *Server) addCoins(w http.ResponseWriter, r *http.Request) {
	s.credit(w, r, s.deps.Progress.AddCoins)
}

// addXP handles POST /v1/progress/xp with {"amount": n}.
func (s *Server) addXP(w http.ResponseWriter, r *http.Request) {
	s.credit(w, r, s.deps.Progress.AddXP)
}

func (s *Server) credit(w http.ResponseWriter, r *http.Request, add func(context.Context, int64) (domain.UserProgress, error)) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Amount <= 0 {
		s.writeAppError(w, r, apperr.InvalidInput("Amount must be positive"))
		return
	}
	up, err := add(r.Context(), req.Amount)
	s.writeProgress(w, r, up, err)
}

// setStreak handles PUT /v1/progress/streak with {"days": n}.
func (s *Server) setStreak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days *int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Days == nil {
		writeError(w, http.StatusBadRequest, "days is required")
		return
	}
	up, err := s.deps.Progress.SetStreak(r.Context(), *req.Days)
	s.writeProgress(w, r, up, err)
}

// checkIn handles POST /v1/progress/checkin. An optional {"day": RFC 3339}
// body backdates the scan day, e.g. for scans made offline.
func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day *time.Time `json:"day"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	day := time.Now()
	if req.Day != nil {
		day = *req.Day
	}
	up, err := s.deps.Progress.RecordScanDay(r.Context(), day)
	s.writeProgress(w, r, up, err)
}

func (s *Server) writeProgress(w http.ResponseWriter, r *http.Request, up domain.UserProgress, err error) {
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{UserProgress: up, Level: up.Level(), XPTarget: up.XPTarget()})
}
