package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// ScanStore keeps scan history in insertion order.
type ScanStore struct {
	mu    sync.RWMutex
	scans []domain.ScanHistory
}

// NewScanStore constructs a ScanStore.
func NewScanStore() *ScanStore {
	return &ScanStore{}
}

// InsertScan appends a scan. The embedded product is not retained.
func (s *ScanStore) InsertScan(_ context.Context, scan domain.ScanHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan.Product = nil
	s.scans = append(s.scans, scan)
	return nil
}

// ListScans returns scans newest first.
func (s *ScanStore) ListScans(_ context.Context, limit int) ([]domain.ScanHistory, error) {
	s.mu.RLock()
	out := append([]domain.ScanHistory(nil), s.scans...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteScan removes the scan with id.
func (s *ScanStore) DeleteScan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, scan := range s.scans {
		if scan.ID == id {
			s.scans = append(s.scans[:i], s.scans[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ClearScans removes every scan.
func (s *ScanStore) ClearScans(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = nil
	return nil
}
