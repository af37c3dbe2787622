package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// AddFavorite bookmarks productID, keeping the first timestamp on repeats.
func (s *Store) AddFavorite(ctx context.Context, productID string, at time.Time) error {
	query := fmt.Sprintf(`INSERT INTO %s (product_id, created_at) VALUES ($1, $2)
ON CONFLICT (product_id) DO NOTHING`, s.table("favorites"))
	if _, err := s.pool.Exec(ctx, query, productID, at); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes the bookmark if present.
func (s *Store) RemoveFavorite(ctx context.Context, productID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE product_id = $1`, s.table("favorites"))
	if _, err := s.pool.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns bookmarks newest first.
func (s *Store) ListFavorites(ctx context.Context) ([]domain.Favorite, error) {
	query := fmt.Sprintf(`SELECT product_id, created_at FROM %s ORDER BY created_at DESC, product_id`,
		s.table("favorites"))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Favorite, error) {
		var f domain.Favorite
		err := row.Scan(&f.ProductID, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan favorites: %w", err)
	}
	return out, nil
}

// IsFavorite reports whether productID is bookmarked.
func (s *Store) IsFavorite(ctx context.Context, productID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE product_id = $1)`, s.table("favorites"))
	var ok bool
	if err := s.pool.QueryRow(ctx, query, productID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
