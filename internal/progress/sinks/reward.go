package sinks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/progress"
)

// Crediter applies earned coins, XP and scan days in one update.
// *profile.Progress implements it.
type Crediter interface {
	Credit(ctx context.Context, coins, xp int64, scanDays ...time.Time) (domain.UserProgress, error)
}

// Rewards sets what a recorded scan is worth.
type Rewards struct {
	CoinsPerScan int64
	XPPerScan    int64
	PfandBonus   int64
}

// DefaultRewards are 10 coins and 20 XP per scan plus 5 coins for a deposit.
var DefaultRewards = Rewards{CoinsPerScan: 10, XPPerScan: 20, PfandBonus: 5}

// RewardSink credits coins, XP and streak days for recorded scans. Each
// batch is applied in a single progress update.
type RewardSink struct {
	progress Crediter
	rewards  Rewards
	logger   *zap.Logger
}

// NewRewardSink constructs a RewardSink.
func NewRewardSink(credits Crediter, rewards Rewards, logger *zap.Logger) *RewardSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardSink{progress: credits, rewards: rewards, logger: logger.Named("rewards")}
}

// Consume applies the rewards of every StageScanRecorded event in batch.
func (s *RewardSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.progress == nil {
		return nil
	}
	var (
		coins, xp int64
		days      []time.Time
	)
	for _, evt := range batch {
		if evt.Stage != progress.StageScanRecorded {
			continue
		}
		coins += s.rewards.CoinsPerScan
		xp += s.rewards.XPPerScan
		if evt.Pfand {
			coins += s.rewards.PfandBonus
		}
		days = append(days, evt.TS)
	}
	if len(days) == 0 {
		return nil
	}

	updated, err := s.progress.Credit(ctx, coins, xp, days...)
	if err != nil {
		return fmt.Errorf("apply scan rewards: %w", err)
	}
	s.logger.Debug("rewards applied",
		zap.Int("scans", len(days)),
		zap.Int64("coins", updated.Coins),
		zap.Int64("xp", updated.XP),
		zap.Int("streak_days", updated.StreakDays),
	)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *RewardSink) Close(context.Context) error {
	return nil
}
