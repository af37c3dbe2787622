// Package pfand detects the German bottle and can deposit on a product and
// estimates its amount.
package pfand

import (
	"strings"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// Deposit amounts in EUR.
const (
	AmountSingleUse     = 0.08
	AmountReusableBeer  = 0.15
	AmountReusableOther = 0.25
)

var (
	categoryWords  = []string{"beers", "bier", "soft drinks", "softdrinks", "soft-drinks", "beverages", "getränke", "drinks", "carbonated drinks"}
	packagingWords = []string{"bottle", "flasche", "can", "dose", "pfand", "deposit", "einweg", "mehrweg", "returnable"}
	labelWords     = []string{"pfand", "deposit", "pfandpflichtig", "pfandzeichen", "einwegpfand", "mehrwegpfand"}
)

// Detector checks products for a deposit.
type Detector struct{}

// New returns a Detector.
func New() Detector {
	return Detector{}
}

// Check inspects the barcode, categories, packaging and labels of p. Products
// without a barcode never carry a deposit.
func (Detector) Check(p *domain.Product) domain.PfandInfo {
	info := domain.PfandInfo{ReturnLocations: []string{}}
	if p == nil || p.Barcode == "" {
		return info
	}
	info.HasPfand = IsPfandBarcode(p.Barcode) ||
		anyContains(p.Categories, categoryWords) ||
		containsAny(strings.ToLower(p.Packaging), packagingWords) ||
		containsAny(strings.ToLower(p.Labels), labelWords)
	if info.HasPfand {
		amount := Amount(p)
		info.Amount = &amount
	}
	return info
}

// Amount estimates the deposit: reusable beer bottles 0.15, other reusable
// bottles 0.25, and single-use bottles and cans 0.08, which is also the
// fallback.
func Amount(p *domain.Product) float64 {
	packaging := strings.ToLower(p.Packaging)
	if containsAny(packaging, []string{"mehrweg", "reusable"}) {
		categories := strings.ToLower(strings.Join(p.Categories, ", "))
		if containsAny(categories, []string{"beer", "bier"}) || strings.Contains(strings.ToLower(p.Name), "bier") {
			return AmountReusableBeer
		}
		return AmountReusableOther
	}
	return AmountSingleUse
}

// IsPfandBarcode reports whether barcode starts with a German prefix in the
// range 400 to 439.
func IsPfandBarcode(barcode string) bool {
	if len(barcode) < 3 {
		return false
	}
	if barcode[0] != '4' || barcode[1] < '0' || barcode[1] > '3' {
		return false
	}
	return barcode[2] >= '0' && barcode[2] <= '9'
}

func anyContains(values, words []string) bool {
	for _, v := range values {
		if containsAny(strings.ToLower(v), words) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
