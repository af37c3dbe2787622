package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// productResponse is one lookup result enriched with its bin and deposit.
type productResponse struct {
	Product   domain.Product       `json:"product"`
	Category  domain.WasteCategory `json:"category"`
	Pfand     domain.PfandInfo     `json:"pfand"`
	FromCache bool                 `json:"from_cache"`
	Warning   string               `json:"warning,omitempty"`
}

func (s *Server) describe(res domain.Result[domain.Product]) productResponse {
	p := res.Data
	return productResponse{
		Product:   p,
		Category:  s.classifier.Classify(&p),
		Pfand:     s.detector.Check(&p),
		FromCache: res.FromCache,
		Warning:   res.Warning(),
	}
}

// getProduct answers with the first lookup result.
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	res, err := flow.First(r.Context(), s.deps.Products.Lookup(chi.URLParam(r, "barcode")), flow.WithLogger(s.logger))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if !res.OK {
		s.writeAppError(w, r, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.describe(res))
}

type sseFailure struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// productEvents streams every lookup result as a server-sent event. Results
// are written from a dedicated delivery loop; the subscription is cancelled
// when the client goes away.
func (s *Server) productEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("encode event", zap.String("event", event), zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			s.logger.Debug("write event", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("flush event", zap.Error(err))
		}
	}

	loop := flow.NewLoop(flow.LoopConfig{QueueSize: 8, Logger: s.logger})
	collector := flow.NewCollector(
		s.deps.Products.Lookup(chi.URLParam(r, "barcode")),
		func(res domain.Result[domain.Product]) {
			if !res.OK {
				send("failure", sseFailure{Error: res.Err.UserMessage, Kind: string(res.Err.Kind)})
				return
			}
			send("result", s.describe(res))
		},
		func(err error) {
			appErr := apperr.As(err)
			send("failure", sseFailure{Error: appErr.UserMessage, Kind: string(appErr.Kind)})
		},
		flow.WithDispatcher(loop),
		flow.WithContext(r.Context()),
		flow.WithLogger(s.logger),
	)
	collector.Start()

	select {
	case <-collector.Done():
	case <-r.Context().Done():
		collector.Cancel()
		<-collector.Done()
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := loop.Close(closeCtx); err != nil {
		s.logger.Warn("close delivery loop", zap.Error(err))
	}
	if r.Context().Err() == nil {
		send("done", map[string]string{"state": collector.State().String()})
	}
}

type searchResponse struct {
	Products  []domain.Product `json:"products"`
	FromCache bool             `json:"from_cache"`
	Warning   string           `json:"warning,omitempty"`
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	germany := false
	if raw := q.Get("germany"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid germany flag")
			return
		}
		germany = val
	}
	res, err := flow.First(r.Context(), s.deps.Products.Search(q.Get("q"), germany), flow.WithLogger(s.logger))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if !res.OK {
		s.writeAppError(w, r, res.Err)
		return
	}
	products := res.Data
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Products: products, FromCache: res.FromCache, Warning: res.Warning()})
}

// rawProduct serves the archived catalog payload unchanged.
func (s *Server) rawProduct(w http.ResponseWriter, r *http.Request) {
	raw, err := s.deps.Products.Raw(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		s.logger.Debug("write raw payload", zap.Error(err))
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.ListCategories(r.Context())
	if err != nil {
		s.writeAppError(w, r, apperr.Database(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": localize(cats, language(r))})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cat, err := s.deps.Categories.GetCategory(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeAppError(w, r, apperr.RecordNotFound("Category", id))
		return
	case err != nil:
		s.writeAppError(w, r, apperr.Database(err))
		return
	}
	writeJSON(w, http.StatusOK, localize([]domain.WasteCategory{cat}, language(r))[0])
}

func (s *Server) categoryProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Products.ByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

type categoryDTO struct {
	domain.WasteCategory
	Name        string `json:"name"`
	Description string `json:"description"`
}

func localize(cats []domain.WasteCategory, lang string) []categoryDTO {
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO{WasteCategory: c, Name: c.Name(lang), Description: c.Description(lang)})
	}
	return out
}

// language picks "de" or "en" from ?lang= or Accept-Language.
func language(r *http.Request) string {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "de") {
		return "de"
	}
	return "en"
}
