package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// Progress reads and adjusts coins, XP and the scan streak.
type Progress struct {
	repo store.ProgressRepository
}

// NewProgress constructs a Progress service.
func NewProgress(repo store.ProgressRepository) *Progress {
	return &Progress{repo: repo}
}

// Get returns the current progress.
func (p *Progress) Get(ctx context.Context) (domain.UserProgress, error) {
	up, err := p.repo.GetProgress(ctx)
	if err != nil {
		return domain.UserProgress{}, apperr.Database(fmt.Errorf("get progress: %w", err))
	}
	return up, nil
}

// AddCoins credits n coins. Non-positive amounts leave progress unchanged.
func (p *Progress) AddCoins(ctx context.Context, n int64) (domain.UserProgress, error) {
	return p.Credit(ctx, n, 0)
}

// AddXP credits n experience points. Non-positive amounts leave progress
// unchanged.
func (p *Progress) AddXP(ctx context.Context, n int64) (domain.UserProgress, error) {
	return p.Credit(ctx, 0, n)
}

// SetStreak overwrites the streak counter.
func (p *Progress) SetStreak(ctx context.Context, days int) (domain.UserProgress, error) {
	if days < 0 {
		return domain.UserProgress{}, apperr.InvalidInput("Streak cannot be negative")
	}
	return p.update(ctx, "set streak", func(up *domain.UserProgress) { up.StreakDays = days })
}

// RecordScanDay advances the streak for a scan on day.
func (p *Progress) RecordScanDay(ctx context.Context, day time.Time) (domain.UserProgress, error) {
	return p.Credit(ctx, 0, 0, day)
}

// Credit adds coins and XP and advances the streak for each scan day, all in
// one update. Non-positive amounts are ignored; with nothing to apply it only
// reads.
func (p *Progress) Credit(ctx context.Context, coins, xp int64, scanDays ...time.Time) (domain.UserProgress, error) {
	coins, xp = max(coins, 0), max(xp, 0)
	if coins == 0 && xp == 0 && len(scanDays) == 0 {
		return p.Get(ctx)
	}
	return p.update(ctx, "credit progress", func(up *domain.UserProgress) {
		up.Coins += coins
		up.XP += xp
		for _, day := range scanDays {
			up.RecordScanDay(day)
		}
	})
}

func (p *Progress) update(ctx context.Context, op string, fn func(*domain.UserProgress)) (domain.UserProgress, error) {
	up, err := p.repo.UpdateProgress(ctx, func(up *domain.UserProgress) error {
		fn(up)
		return nil
	})
	if err != nil {
		return domain.UserProgress{}, apperr.Database(fmt.Errorf("%s: %w", op, err))
	}
	return up, nil
}
