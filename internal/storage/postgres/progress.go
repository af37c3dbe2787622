package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// GetProgress returns the stored progress, or the zero value before the
// first update.
func (s *Store) GetProgress(ctx context.Context) (domain.UserProgress, error) {
	query := fmt.Sprintf(`SELECT coins, xp, streak_days, last_scan_day FROM %s WHERE id = 1`,
		s.table("user_progress"))
	p, err := scanProgress(s.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProgress{}, nil
	}
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// UpdateProgress locks the progress row, applies fn and writes the result
// in one transaction.
func (s *Store) UpdateProgress(ctx context.Context, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("begin progress update: %w", err)
	}

	ensure := fmt.Sprintf(`INSERT INTO %s (id) VALUES (1) ON CONFLICT (id) DO NOTHING`, s.table("user_progress"))
	if _, err := tx.Exec(ctx, ensure); err != nil {
		rollback(ctx, tx)
		return domain.UserProgress{}, fmt.Errorf("ensure progress row: %w", err)
	}

	lock := fmt.Sprintf(`SELECT coins, xp, streak_days, last_scan_day FROM %s WHERE id = 1 FOR UPDATE`,
		s.table("user_progress"))
	current, err := scanProgress(tx.QueryRow(ctx, lock))
	if err != nil {
		rollback(ctx, tx)
		return domain.UserProgress{}, fmt.Errorf("lock progress: %w", err)
	}

	next := current
	if err := fn(&next); err != nil {
		rollback(ctx, tx)
		return current, err
	}

	update := fmt.Sprintf(`UPDATE %s SET coins = $1, xp = $2, streak_days = $3, last_scan_day = $4 WHERE id = 1`,
		s.table("user_progress"))
	if _, err := tx.Exec(ctx, update, next.Coins, next.XP, next.StreakDays, timestamptz(next)); err != nil {
		rollback(ctx, tx)
		return current, fmt.Errorf("write progress: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return current, fmt.Errorf("commit progress: %w", err)
	}
	return next, nil
}

func scanProgress(row pgx.Row) (domain.UserProgress, error) {
	var (
		p       domain.UserProgress
		lastDay pgtype.Timestamptz
	)
	if err := row.Scan(&p.Coins, &p.XP, &p.StreakDays, &lastDay); err != nil {
		return domain.UserProgress{}, err
	}
	if lastDay.Valid {
		p.LastScanDay = lastDay.Time.UTC()
	}
	return p, nil
}

func timestamptz(p domain.UserProgress) pgtype.Timestamptz {
	if p.LastScanDay.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: p.LastScanDay, Valid: true}
}
