package store

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProductRepository persists catalog products keyed by barcode.
type ProductRepository interface {
	// GetProduct loads a product or returns ErrNotFound.
	GetProduct(ctx context.Context, barcode string) (domain.Product, error)
	// UpsertProduct inserts or replaces the product with the same barcode.
	UpsertProduct(ctx context.Context, p domain.Product) error
	// SearchProducts matches query against name, brand, generic name and
	// barcode, most recently updated first.
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	// ListProducts pages through every stored product, most recently updated first.
	ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error)
}

// ScanRepository persists scan history.
type ScanRepository interface {
	InsertScan(ctx context.Context, scan domain.ScanHistory) error
	// ListScans returns scans newest first; limit <= 0 returns all of them.
	ListScans(ctx context.Context, limit int) ([]domain.ScanHistory, error)
	// DeleteScan removes one scan or returns ErrNotFound.
	DeleteScan(ctx context.Context, id string) error
	ClearScans(ctx context.Context) error
}

// FavoriteRepository persists bookmarked products.
type FavoriteRepository interface {
	// AddFavorite is idempotent; re-adding keeps the original timestamp.
	AddFavorite(ctx context.Context, productID string, at time.Time) error
	RemoveFavorite(ctx context.Context, productID string) error
	// ListFavorites returns favorites newest first.
	ListFavorites(ctx context.Context) ([]domain.Favorite, error)
	IsFavorite(ctx context.Context, productID string) (bool, error)
}

// ProgressRepository persists the gamification state of the local user.
type ProgressRepository interface {
	GetProgress(ctx context.Context) (domain.UserProgress, error)
	// UpdateProgress applies fn atomically and returns the stored result.
	UpdateProgress(ctx context.Context, fn func(*domain.UserProgress) error) (domain.UserProgress, error)
}

// CategoryRepository serves waste category definitions.
type CategoryRepository interface {
	// ListCategories returns categories ordered by sort order.
	ListCategories(ctx context.Context) ([]domain.WasteCategory, error)
	// GetCategory loads one category or returns ErrNotFound.
	GetCategory(ctx context.Context, id string) (domain.WasteCategory, error)
}

// Repositories bundles every repository the service needs.
type Repositories struct {
	Products   ProductRepository
	Scans      ScanRepository
	Favorites  FavoriteRepository
	Progress   ProgressRepository
	Categories CategoryRepository
}
