package domain

import (
	"testing"
	"time"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestCategoriesSorted(t *testing.T) {
	t.Parallel()

	cats := Categories()
	require.Len(t, cats, 6)
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []string{"gelbe_tonne", "papier", "glas", "bio", "restmuell", "pfand"}, ids)

	glas := MustCategory(CategoryGlas)
	require.Equal(t, "Glas", glas.Name("de"))
	require.Equal(t, "Glass", glas.Name("en"))
	require.Equal(t, "Glass", glas.Name("fr"))
	require.Contains(t, glas.Description("de"), "Glascontainer")

	_, ok := Category("compost")
	require.False(t, ok)
}

func TestUserProgressLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		xp     int64
		level  int64
		target int64
	}{
		{0, 1, 200},
		{-5, 1, 200},
		{199, 1, 200},
		{200, 2, 400},
		{950, 5, 1000},
	}
	for _, tt := range tests {
		u := UserProgress{XP: tt.xp}
		require.Equal(t, tt.level, u.Level(), "xp=%d", tt.xp)
		require.Equal(t, tt.target, u.XPTarget(), "xp=%d", tt.xp)
	}
}

func TestRecordScanDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	var u UserProgress

	u.RecordScanDay(day)
	require.Equal(t, 1, u.StreakDays)

	u.RecordScanDay(day.Add(2 * time.Hour))
	require.Equal(t, 1, u.StreakDays)

	u.RecordScanDay(day.AddDate(0, 0, 1))
	require.Equal(t, 2, u.StreakDays)

	u.RecordScanDay(day.AddDate(0, 0, 4))
	require.Equal(t, 1, u.StreakDays)
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), u.LastScanDay)
}

func TestPfandFormattedAmount(t *testing.T) {
	t.Parallel()

	amount := 0.25
	require.Equal(t, "0.25 €", PfandInfo{HasPfand: true, Amount: &amount}.FormattedAmount())
	require.Empty(t, PfandInfo{}.FormattedAmount())
}

func TestOfflineResult(t *testing.T) {
	t.Parallel()

	withCache := Offline(Product{Barcode: "1"}, true, "")
	require.True(t, withCache.OK)
	require.True(t, withCache.FromCache)
	require.Equal(t, "No internet connection. Showing cached data.", withCache.Warning())

	without := Offline(Product{}, false, "offline")
	require.False(t, without.OK)
	require.Equal(t, apperr.KindOffline, without.Err.Kind)
	require.Empty(t, without.Warning())
}

func TestSplitListAndMatches(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"Getränke", "Softdrinks", "Cola"}, SplitList(" Getränke, Softdrinks;Cola ,, "))
	require.Empty(t, SplitList(""))

	p := Product{Barcode: "4001", Name: "Club-Mate", Brand: "Loscher"}
	require.True(t, p.Matches("mate"))
	require.True(t, p.Matches("LOSCH"))
	require.False(t, p.Matches(" "))
	require.Equal(t, "4001", Product{Barcode: "4001"}.DisplayName())
}
