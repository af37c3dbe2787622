package memory

import (
	"context"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// CategoryStore serves the built-in waste categories.
type CategoryStore struct{}

// NewCategoryStore constructs a CategoryStore.
func NewCategoryStore() CategoryStore {
	return CategoryStore{}
}

// ListCategories returns the built-in catalog.
func (CategoryStore) ListCategories(context.Context) ([]domain.WasteCategory, error) {
	return domain.Categories(), nil
}

// GetCategory looks up id in the built-in catalog.
func (CategoryStore) GetCategory(_ context.Context, id string) (domain.WasteCategory, error) {
	c, ok := domain.Category(id)
	if !ok {
		return domain.WasteCategory{}, store.ErrNotFound
	}
	return c, nil
}

// Repositories returns a fresh set of in-memory repositories.
func Repositories() store.Repositories {
	return store.Repositories{
		Products:   NewProductStore(),
		Scans:      NewScanStore(),
		Favorites:  NewFavoriteStore(),
		Progress:   NewProgressStore(),
		Categories: NewCategoryStore(),
	}
}
