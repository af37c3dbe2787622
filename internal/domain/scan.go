package domain

import (
	"fmt"
	"time"
)

// PfandInfo describes the deposit on a product.
type PfandInfo struct {
	HasPfand bool `json:"has_pfand"`
	// Amount is in EUR; nil when unknown or without deposit.
	Amount          *float64 `json:"amount,omitempty"`
	ReturnLocations []string `json:"return_locations,omitempty"`
}

// FormattedAmount renders the amount as "0.25 €", or "" when unknown.
func (p PfandInfo) FormattedAmount() string {
	if p.Amount == nil {
		return ""
	}
	return fmt.Sprintf("%.2f €", *p.Amount)
}

// ScanHistory is one recorded scan.
type ScanHistory struct {
	ID        string    `json:"id"`
	Barcode   string    `json:"barcode"`
	ProductID string    `json:"product_id,omitempty"`
	Product   *Product  `json:"product,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// Favorite marks a product the user bookmarked.
type Favorite struct {
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// XPPerLevel is the XP needed to advance one level.
const XPPerLevel = 200

// UserProgress is the gamification state of the single local user.
type UserProgress struct {
	Coins      int64 `json:"coins"`
	XP         int64 `json:"xp"`
	StreakDays int   `json:"streak_days"`
	// LastScanDay is the UTC date (midnight) of the most recent scan.
	LastScanDay time.Time `json:"last_scan_day"`
}

// Level starts at 1 and grows every XPPerLevel points.
func (u UserProgress) Level() int64 {
	if u.XP <= 0 {
		return 1
	}
	return u.XP/XPPerLevel + 1
}

// XPTarget is the XP at which the next level starts.
func (u UserProgress) XPTarget() int64 {
	return u.Level() * XPPerLevel
}

// RecordScanDay updates the streak for a scan on day. A scan the day after
// the previous one extends the streak, a gap resets it to 1, and a second
// scan on the same day leaves it unchanged.
func (u *UserProgress) RecordScanDay(day time.Time) {
	day = truncateDay(day)
	switch {
	case u.LastScanDay.IsZero():
		u.StreakDays = 1
	case day.Equal(u.LastScanDay):
		if u.StreakDays == 0 {
			u.StreakDays = 1
		}
		return
	case day.Equal(u.LastScanDay.AddDate(0, 0, 1)):
		u.StreakDays++
	case day.Before(u.LastScanDay):
		return
	default:
		u.StreakDays = 1
	}
	u.LastScanDay = day
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
