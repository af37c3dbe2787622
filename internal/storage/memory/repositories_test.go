package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestProductStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewProductStore()

	_, err := s.GetProduct(ctx, "123")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpsertProduct(ctx, domain.Product{Barcode: "1", Name: "Apfelsaft", Brand: "Hohes C", UpdatedAt: base}))
	require.NoError(t, s.UpsertProduct(ctx, domain.Product{Barcode: "2", Name: "Orangensaft", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.UpsertProduct(ctx, domain.Product{Barcode: "3", Name: "Milch", Categories: []string{"dairy"}, UpdatedAt: base.Add(2 * time.Hour)}))

	got, err := s.GetProduct(ctx, "3")
	require.NoError(t, err)
	got.Categories[0] = "mutated"
	again, err := s.GetProduct(ctx, "3")
	require.NoError(t, err)
	require.Equal(t, []string{"dairy"}, again.Categories)

	hits, err := s.SearchProducts(ctx, "SAFT", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "2", hits[0].Barcode)

	hits, err = s.SearchProducts(ctx, "saft", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	page, err := s.ListProducts(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "2", page[0].Barcode)
	require.Equal(t, "1", page[1].Barcode)

	page, err = s.ListProducts(ctx, 10, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestScanStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewScanStore()

	product := &domain.Product{Barcode: "1"}
	require.NoError(t, s.InsertScan(ctx, domain.ScanHistory{ID: "a", Barcode: "1", Product: product, Timestamp: base}))
	require.NoError(t, s.InsertScan(ctx, domain.ScanHistory{ID: "b", Barcode: "2", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.InsertScan(ctx, domain.ScanHistory{ID: "c", Barcode: "3", Timestamp: base.Add(2 * time.Minute)}))

	all, err := s.ListScans(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, scanIDs(all))
	require.Nil(t, all[2].Product)

	recent, err := s.ListScans(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, scanIDs(recent))

	require.NoError(t, s.DeleteScan(ctx, "b"))
	require.ErrorIs(t, s.DeleteScan(ctx, "b"), store.ErrNotFound)

	require.NoError(t, s.ClearScans(ctx))
	all, err = s.ListScans(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestFavoriteStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewFavoriteStore()

	require.NoError(t, s.AddFavorite(ctx, "p1", base))
	require.NoError(t, s.AddFavorite(ctx, "p2", base.Add(time.Hour)))
	require.NoError(t, s.AddFavorite(ctx, "p1", base.Add(2*time.Hour)))

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	require.Equal(t, "p2", favs[0].ProductID)
	require.Equal(t, base, favs[1].CreatedAt)

	ok, err := s.IsFavorite(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.RemoveFavorite(ctx, "p1"))
	require.NoError(t, s.RemoveFavorite(ctx, "p1"))
	ok, err = s.IsFavorite(ctx, "p1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProgressStoreUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewProgressStore()

	got, err := s.UpdateProgress(ctx, func(p *domain.UserProgress) error {
		p.Coins += 10
		p.XP += 20
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, got.Coins)

	boom := errors.New("boom")
	got, err = s.UpdateProgress(ctx, func(p *domain.UserProgress) error {
		p.Coins = 999
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 10, got.Coins)

	stored, err := s.GetProgress(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 20, stored.XP)
	require.EqualValues(t, 10, stored.Coins)
}

func TestCategoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := Repositories()

	cats, err := repos.Categories.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(domain.Categories()))

	got, err := repos.Categories.GetCategory(ctx, domain.CategoryGelbeTonne)
	require.NoError(t, err)
	require.Equal(t, domain.CategoryGelbeTonne, got.ID)

	_, err = repos.Categories.GetCategory(ctx, "compost-heap")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func scanIDs(scans []domain.ScanHistory) []string {
	out := make([]string, 0, len(scans))
	for _, s := range scans {
		out = append(out, s.ID)
	}
	return out
}
