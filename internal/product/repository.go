// Package product serves product lookups from an in-memory cache, the
// product store and the OpenFoodFacts catalog, in that order.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/classify"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/metrics"
	"github.com/JakeFAU/binbuddy/internal/openfoodfacts"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// Lookup sources reported to metrics.
const (
	SourceMemory  = "memory"
	SourceStore   = "store"
	SourceCatalog = "catalog"
	SourceOffline = "offline"
)

// User-facing messages of offline results.
const (
	msgOfflineCached       = "Showing cached data - no internet connection"
	msgOfflineNoData       = "No internet connection and no cached data available"
	msgNetworkCached       = "Network error - showing cached data"
	msgOfflineSearchCached = "Showing cached search results - no internet connection"
	msgOfflineSearchEmpty  = "No internet connection and no cached search results"
	msgNetworkSearchCached = "Network error - showing cached search results"
)

// Catalog is the remote product source.
type Catalog interface {
	Product(ctx context.Context, barcode string) (openfoodfacts.ProductPayload, error)
	Search(ctx context.Context, q openfoodfacts.SearchQuery) (openfoodfacts.SearchPage, error)
}

// Archiver keeps raw catalog payloads.
type Archiver interface {
	PutProduct(ctx context.Context, barcode string, raw []byte) (string, bool, error)
	PutSearch(ctx context.Context, query string, raw []byte) (string, bool, error)
	Product(ctx context.Context, barcode string) ([]byte, error)
}

// Config wires a Repository.
type Config struct {
	Store   store.ProductRepository
	Catalog Catalog
	// Archive is optional.
	Archive      Archiver
	Connectivity Checker
	CacheEntries int
	// SearchPageSize bounds remote and stored search results.
	SearchPageSize int
	Logger         *zap.Logger
	Now            func() time.Time
}

// Repository resolves barcodes to products.
type Repository struct {
	store      store.ProductRepository
	catalog    Catalog
	archive    Archiver
	conn       Checker
	cache      *memoryCache
	fetches    singleflight.Group
	classifier classify.Classifier
	pageSize   int
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs a Repository.
func New(cfg Config) (*Repository, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("product store is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Connectivity == nil {
		cfg.Connectivity = Static(true)
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = 20
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		archive:    cfg.Archive,
		conn:       cfg.Connectivity,
		cache:      newMemoryCache(cfg.CacheEntries),
		classifier: classify.New(),
		pageSize:   cfg.SearchPageSize,
		logger:     logger.Named("product"),
		now:        cfg.Now,
	}, nil
}

// Lookup streams the results for barcode. A cache hit emits once. A store
// hit emits the stored product and, when online, a refreshed one afterwards.
// A miss emits the catalog result or a failure. Every failure is delivered
// as a value; the stream itself only fails when ctx ends.
func (r *Repository) Lookup(barcode string) flow.Stream[domain.Result[domain.Product]] {
	barcode = strings.TrimSpace(barcode)
	return flow.Func[domain.Result[domain.Product]](func(ctx context.Context, emit func(domain.Result[domain.Product]) error) error {
		if barcode == "" {
			return emit(domain.Failure[domain.Product](apperr.InvalidInput("Barcode cannot be empty")))
		}

		if p, ok := r.cache.get(barcode); ok {
			metrics.ObserveLookupSource(SourceMemory)
			return emit(domain.SuccessFromCache(p))
		}

		stored, err := r.store.GetProduct(ctx, barcode)
		switch {
		case err == nil:
			return r.serveStored(ctx, stored, emit)
		case errors.Is(err, store.ErrNotFound):
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("load stored product", zap.String("barcode", barcode), zap.Error(err))
			return emit(domain.Failure[domain.Product](apperr.Database(err)))
		}

		if !r.conn.Online(ctx) {
			metrics.ObserveLookupSource(SourceOffline)
			return emit(domain.Failure[domain.Product](apperr.Offline(msgOfflineNoData)))
		}

		fresh, err := r.fetch(ctx, barcode)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return emit(r.fetchFailure(ctx, barcode, err))
		}
		metrics.ObserveLookupSource(SourceCatalog)
		return emit(domain.Success(fresh))
	})
}

func (r *Repository) serveStored(ctx context.Context, stored domain.Product, emit func(domain.Result[domain.Product]) error) error {
	r.cache.put(stored)
	metrics.ObserveLookupSource(SourceStore)

	if !r.conn.Online(ctx) {
		return emit(domain.Offline(stored, true, msgOfflineCached))
	}
	if err := emit(domain.SuccessFromCache(stored)); err != nil {
		return err
	}

	fresh, err := r.fetch(ctx, stored.Barcode)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Debug("background refresh failed", zap.String("barcode", stored.Barcode), zap.Error(err))
		return nil
	}
	metrics.ObserveLookupSource(SourceCatalog)
	return emit(domain.Success(fresh))
}

// fetchFailure maps a failed catalog fetch, falling back to stored data on
// network failures.
func (r *Repository) fetchFailure(ctx context.Context, barcode string, err error) domain.Result[domain.Product] {
	appErr := apperr.As(err)
	if appErr.IsNetwork() {
		if stored, getErr := r.store.GetProduct(ctx, barcode); getErr == nil {
			metrics.ObserveLookupSource(SourceOffline)
			return domain.Offline(stored, true, msgNetworkCached)
		}
	}
	return domain.Failure[domain.Product](appErr)
}

// fetch loads barcode from the catalog and persists it. Concurrent fetches
// of the same barcode share one request, which outlives a caller that gives
// up early.
func (r *Repository) fetch(ctx context.Context, barcode string) (domain.Product, error) {
	shared := context.WithoutCancel(ctx)
	ch := r.fetches.DoChan(barcode, func() (any, error) {
		payload, err := r.catalog.Product(shared, barcode)
		if err != nil {
			return domain.Product{}, err
		}
		p := payload.Product
		r.persist(shared, p)
		r.archiveProduct(shared, barcode, payload.Raw)
		return p, nil
	})
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Product{}, res.Err
		}
		return res.Val.(domain.Product), nil
	}
}

func (r *Repository) persist(ctx context.Context, p domain.Product) {
	if err := r.store.UpsertProduct(ctx, p); err != nil {
		r.logger.Warn("save product", zap.String("barcode", p.Barcode), zap.Error(err))
	}
	r.cache.put(p)
}

func (r *Repository) archiveProduct(ctx context.Context, barcode string, raw []byte) {
	if r.archive == nil || len(raw) == 0 {
		return
	}
	if _, _, err := r.archive.PutProduct(ctx, barcode, raw); err != nil {
		r.logger.Warn("archive product payload", zap.String("barcode", barcode), zap.Error(err))
	}
}

// Search streams one result for query: stored matches when offline, catalog
// results otherwise.
func (r *Repository) Search(query string, germanyOnly bool) flow.Stream[domain.Result[[]domain.Product]] {
	query = strings.TrimSpace(query)
	return flow.Func[domain.Result[[]domain.Product]](func(ctx context.Context, emit func(domain.Result[[]domain.Product]) error) error {
		if query == "" {
			return emit(domain.Failure[[]domain.Product](apperr.InvalidInput("Search query cannot be empty")))
		}
		if !r.conn.Online(ctx) {
			return emit(r.storedSearch(ctx, query, msgOfflineSearchCached, msgOfflineSearchEmpty))
		}

		page, err := r.catalog.Search(ctx, openfoodfacts.SearchQuery{
			Terms:       query,
			GermanyOnly: germanyOnly,
			Page:        1,
			PageSize:    r.pageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			appErr := apperr.As(err)
			if appErr.IsNetwork() {
				return emit(r.storedSearch(ctx, query, msgNetworkSearchCached, ""))
			}
			return emit(domain.Failure[[]domain.Product](appErr))
		}

		for _, p := range page.Products {
			r.persist(ctx, p)
		}
		if r.archive != nil && len(page.Raw) > 0 {
			if _, _, err := r.archive.PutSearch(ctx, query, page.Raw); err != nil {
				r.logger.Warn("archive search payload", zap.String("query", query), zap.Error(err))
			}
		}
		return emit(domain.Success(page.Products))
	})
}

func (r *Repository) storedSearch(ctx context.Context, query, cachedMsg, emptyMsg string) domain.Result[[]domain.Product] {
	products, err := r.store.SearchProducts(ctx, query, r.pageSize)
	if err != nil {
		return domain.Failure[[]domain.Product](apperr.Database(err))
	}
	if len(products) == 0 {
		if emptyMsg == "" {
			return domain.Failure[[]domain.Product](apperr.Network(errors.New("catalog unreachable and no stored matches")))
		}
		return domain.Failure[[]domain.Product](apperr.Offline(emptyMsg))
	}
	return domain.Offline(products, true, cachedMsg)
}

// ByCategory returns stored products classified into categoryID.
func (r *Repository) ByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if _, ok := domain.Category(categoryID); !ok {
		return nil, apperr.InvalidInput(fmt.Sprintf("Unknown waste category %q", categoryID))
	}
	all, err := r.store.ListProducts(ctx, 0, 0)
	if err != nil {
		return nil, apperr.Database(err)
	}
	out := make([]domain.Product, 0)
	for i := range all {
		if r.classifier.ID(&all[i]) == categoryID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Save stores p and refreshes the cache.
func (r *Repository) Save(ctx context.Context, p domain.Product) error {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if p.Barcode == "" {
		return apperr.InvalidInput("Barcode cannot be empty")
	}
	if p.ID == "" {
		p.ID = p.Barcode
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now()
	}
	if err := r.store.UpsertProduct(ctx, p); err != nil {
		return apperr.Database(err)
	}
	r.cache.put(p)
	return nil
}

// Raw returns the archived catalog payload of barcode.
func (r *Repository) Raw(ctx context.Context, barcode string) ([]byte, error) {
	if r.archive == nil {
		return nil, apperr.NotFound(barcode)
	}
	data, err := r.archive.Product(ctx, barcode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(barcode)
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return data, nil
}

// ClearCache empties the in-memory cache. Stored products are kept.
func (r *Repository) ClearCache() {
	r.cache.clear()
}
