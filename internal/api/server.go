package api

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/classify"
	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/metrics"
	"github.com/JakeFAU/binbuddy/internal/pfand"
	"github.com/JakeFAU/binbuddy/internal/scan"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// Products serves product lookups.
type Products interface {
	Lookup(barcode string) flow.Stream[domain.Result[domain.Product]]
	Search(query string, germanyOnly bool) flow.Stream[domain.Result[[]domain.Product]]
	ByCategory(ctx context.Context, categoryID string) ([]domain.Product, error)
	Raw(ctx context.Context, barcode string) ([]byte, error)
}

// Scans records and lists scans.
type Scans interface {
	Record(ctx context.Context, req scan.Request) (scan.Outcome, error)
	Recent(ctx context.Context, limit int) ([]domain.ScanHistory, error)
	History(ctx context.Context) ([]domain.ScanHistory, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	EnqueueBatch(ctx context.Context, barcodes []string, location string) (scan.BatchState, error)
	Batch(id string) (scan.BatchState, bool)
}

// Favorites manages bookmarked products.
type Favorites interface {
	Add(ctx context.Context, productID string) error
	Remove(ctx context.Context, productID string) error
	List(ctx context.Context) ([]domain.Favorite, error)
	IsFavorite(ctx context.Context, productID string) (bool, error)
}

// Progress reads and adjusts the user's gamification state.
type Progress interface {
	Get(ctx context.Context) (domain.UserProgress, error)
	AddCoins(ctx context.Context, n int64) (domain.UserProgress, error)
	AddXP(ctx context.Context, n int64) (domain.UserProgress, error)
	SetStreak(ctx context.Context, days int) (domain.UserProgress, error)
	RecordScanDay(ctx context.Context, day time.Time) (domain.UserProgress, error)
}

// Deps bundles the services behind the handlers.
type Deps struct {
	Products   Products
	Scans      Scans
	Favorites  Favorites
	Progress   Progress
	Categories store.CategoryRepository
	// Ready reports whether downstream dependencies are reachable; optional.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the services.
type Server struct {
	router     chi.Router
	deps       Deps
	classifier classify.Classifier
	detector   pfand.Detector
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:       deps,
		classifier: classify.New(),
		detector:   pfand.New(),
		cfg:        cfg,
		logger:     logger.Named("api"),
	}
	timeout := time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		// Streams stay open for as long as the lookup produces results.
		r.Get("/products/{barcode}/events", s.productEvents)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(timeout))
			r.Get("/products/search", s.searchProducts)
			r.Get("/products/{barcode}", s.getProduct)
			r.Get("/products/{barcode}/raw", s.rawProduct)

			r.Get("/categories", s.listCategories)
			r.Get("/categories/{id}", s.getCategory)
			r.Get("/categories/{id}/products", s.categoryProducts)

			r.Route("/scans", func(r chi.Router) {
				r.Post("/", s.recordScan)
				r.Get("/", s.listScans)
				r.Delete("/", s.clearScans)
				r.Post("/batch", s.submitBatch)
				r.Get("/batch/{id}", s.getBatch)
				r.Delete("/{id}", s.deleteScan)
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", s.listFavorites)
				r.Get("/{product_id}", s.getFavorite)
				r.Put("/{product_id}", s.addFavorite)
				r.Delete("/{product_id}", s.removeFavorite)
			})

			r.Route("/progress", func(r chi.Router) {
				r.Get("/", s.getProgress)
				r.Post("/coins", s.addCoins)
				r.Post("/xp", s.addXP)
				r.Put("/streak", s.setStreak)
				r.Post("/checkin", s.checkIn)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError answers with the user message and the status of err's kind.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	status := apperr.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: appErr.UserMessage, Kind: string(appErr.Kind)})
}
