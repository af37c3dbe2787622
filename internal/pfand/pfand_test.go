package pfand

import (
	"testing"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestIsPfandBarcode(t *testing.T) {
	t.Parallel()

	for code, want := range map[string]bool{
		"4001234567890": true,
		"4390000000000": true,
		"4400000000000": false,
		"5000000000000": false,
		"40":            false,
		"":              false,
		"4a0":           false,
	} {
		require.Equal(t, want, IsPfandBarcode(code), code)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		product *domain.Product
		has     bool
		amount  float64
	}{
		{"nil", nil, false, 0},
		{"no barcode", &domain.Product{Packaging: "Pfand"}, false, 0},
		{"german prefix", &domain.Product{Barcode: "4100000000000"}, true, AmountSingleUse},
		{"category", &domain.Product{Barcode: "5000000000000", Categories: []string{"Soft Drinks"}}, true, AmountSingleUse},
		{"reusable beer", &domain.Product{Barcode: "5000000000000", Packaging: "Mehrwegflasche", Categories: []string{"Beers"}}, true, AmountReusableBeer},
		{"reusable beer by name", &domain.Product{Barcode: "5000000000000", Name: "Pils Bier", Packaging: "mehrweg"}, true, AmountReusableBeer},
		{"reusable soda", &domain.Product{Barcode: "5000000000000", Packaging: "Mehrweg Glas"}, true, AmountReusableOther},
		{"can", &domain.Product{Barcode: "5000000000000", Packaging: "Dose"}, true, AmountSingleUse},
		{"label", &domain.Product{Barcode: "5000000000000", Labels: "Einwegpfand"}, true, AmountSingleUse},
		{"none", &domain.Product{Barcode: "5000000000000", Packaging: "Karton", Categories: []string{"Cereals"}}, false, 0},
	}
	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := d.Check(tt.product)
			require.Equal(t, tt.has, info.HasPfand)
			require.NotNil(t, info.ReturnLocations)
			if !tt.has {
				require.Nil(t, info.Amount)
				return
			}
			require.NotNil(t, info.Amount)
			require.InDelta(t, tt.amount, *info.Amount, 1e-9)
		})
	}
}
