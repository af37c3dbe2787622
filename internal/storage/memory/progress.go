package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// ProgressStore holds the single user's progress.
type ProgressStore struct {
	mu       sync.Mutex
	progress domain.UserProgress
}

// NewProgressStore constructs a ProgressStore starting from zero.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

// GetProgress returns a copy of the current progress.
func (s *ProgressStore) GetProgress(context.Context) (domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress, nil
}

// UpdateProgress applies fn under the store lock. A failing fn leaves the
// stored progress unchanged.
func (s *ProgressStore) UpdateProgress(_ context.Context, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.progress
	if err := fn(&next); err != nil {
		return s.progress, err
	}
	s.progress = next
	return next, nil
}
