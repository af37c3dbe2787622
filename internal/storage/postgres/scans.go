package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// InsertScan stores one scan row; the embedded product is not persisted.
func (s *Store) InsertScan(ctx context.Context, scan domain.ScanHistory) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, barcode, product_id, scanned_at, location)
VALUES ($1, $2, $3, $4, $5)`, s.table("scans"))
	if _, err := s.pool.Exec(ctx, query, scan.ID, scan.Barcode, scan.ProductID, scan.Timestamp, scan.Location); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// ListScans returns scans newest first.
func (s *Store) ListScans(ctx context.Context, limit int) ([]domain.ScanHistory, error) {
	query := fmt.Sprintf(`SELECT id, barcode, product_id, scanned_at, location FROM %s
ORDER BY scanned_at DESC LIMIT $1`, s.table("scans"))
	rows, err := s.pool.Query(ctx, query, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ScanHistory, error) {
		var h domain.ScanHistory
		err := row.Scan(&h.ID, &h.Barcode, &h.ProductID, &h.Timestamp, &h.Location)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan scans: %w", err)
	}
	return out, nil
}

// DeleteScan removes one scan.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table("scans")), id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearScans removes all scan history.
func (s *Store) ClearScans(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table("scans"))); err != nil {
		return fmt.Errorf("clear scans: %w", err)
	}
	return nil
}
