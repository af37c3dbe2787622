// Package profile manages the local user's favorites and gamification
// progress.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

func utcNow() time.Time { return time.Now().UTC() }

// Favorites bookmarks products.
type Favorites struct {
	repo   store.FavoriteRepository
	clock  Clock
	logger *zap.Logger
}

// NewFavorites constructs a Favorites service. clock and logger may be nil.
func NewFavorites(repo store.FavoriteRepository, clock Clock, logger *zap.Logger) *Favorites {
	if clock == nil {
		clock = clockFunc(utcNow)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Favorites{repo: repo, clock: clock, logger: logger.Named("favorites")}
}

// Add bookmarks productID. An empty id is ignored.
func (f *Favorites) Add(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		f.logger.Warn("ignoring favorite without product id")
		return nil
	}
	if err := f.repo.AddFavorite(ctx, productID, f.clock.Now()); err != nil {
		return apperr.Database(fmt.Errorf("add favorite %s: %w", productID, err))
	}
	return nil
}

// Remove drops the bookmark for productID; removing an unknown id succeeds.
func (f *Favorites) Remove(ctx context.Context, productID string) error {
	if err := f.repo.RemoveFavorite(ctx, strings.TrimSpace(productID)); err != nil {
		return apperr.Database(fmt.Errorf("remove favorite %s: %w", productID, err))
	}
	return nil
}

// List returns favorites newest first.
func (f *Favorites) List(ctx context.Context) ([]domain.Favorite, error) {
	favs, err := f.repo.ListFavorites(ctx)
	if err != nil {
		return nil, apperr.Database(fmt.Errorf("list favorites: %w", err))
	}
	return favs, nil
}

// IsFavorite reports whether productID is bookmarked.
func (f *Favorites) IsFavorite(ctx context.Context, productID string) (bool, error) {
	ok, err := f.repo.IsFavorite(ctx, strings.TrimSpace(productID))
	if err != nil {
		return false, apperr.Database(fmt.Errorf("check favorite %s: %w", productID, err))
	}
	return ok, nil
}
