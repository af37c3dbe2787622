package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// ProductStore keeps products keyed by barcode.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewProductStore constructs a ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]domain.Product)}
}

// GetProduct loads a product by barcode.
func (s *ProductStore) GetProduct(_ context.Context, barcode string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[barcode]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return cloneProduct(p), nil
}

// UpsertProduct stores p under its barcode.
func (s *ProductStore) UpsertProduct(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.Barcode] = cloneProduct(p)
	return nil
}

// SearchProducts returns products matching query.
func (s *ProductStore) SearchProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.Matches(query) {
			out = append(out, cloneProduct(p))
		}
	}
	sortProducts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListProducts pages through all products.
func (s *ProductStore) ListProducts(_ context.Context, limit, offset int) ([]domain.Product, error) {
	s.mu.RLock()
	all := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, cloneProduct(p))
	}
	s.mu.RUnlock()

	sortProducts(all)
	if offset >= len(all) {
		return []domain.Product{}, nil
	}
	if offset > 0 {
		all = all[offset:]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func sortProducts(ps []domain.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].UpdatedAt.Equal(ps[j].UpdatedAt) {
			return ps[i].UpdatedAt.After(ps[j].UpdatedAt)
		}
		return ps[i].Barcode < ps[j].Barcode
	})
}

func cloneProduct(p domain.Product) domain.Product {
	p.Categories = append([]string(nil), p.Categories...)
	p.Ingredients = append([]string(nil), p.Ingredients...)
	return p
}
