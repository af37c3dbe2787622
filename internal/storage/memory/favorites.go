package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// FavoriteStore keeps favorites keyed by product ID.
type FavoriteStore struct {
	mu        sync.RWMutex
	favorites map[string]time.Time
}

// NewFavoriteStore constructs a FavoriteStore.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{favorites: make(map[string]time.Time)}
}

// AddFavorite records productID unless already present.
func (s *FavoriteStore) AddFavorite(_ context.Context, productID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[productID]; !ok {
		s.favorites[productID] = at
	}
	return nil
}

// RemoveFavorite deletes productID; missing entries are ignored.
func (s *FavoriteStore) RemoveFavorite(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favorites, productID)
	return nil
}

// ListFavorites returns favorites newest first.
func (s *FavoriteStore) ListFavorites(context.Context) ([]domain.Favorite, error) {
	s.mu.RLock()
	out := make([]domain.Favorite, 0, len(s.favorites))
	for id, at := range s.favorites {
		out = append(out, domain.Favorite{ProductID: id, CreatedAt: at})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// IsFavorite reports whether productID is bookmarked.
func (s *FavoriteStore) IsFavorite(_ context.Context, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[productID]
	return ok, nil
}
