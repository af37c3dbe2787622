package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry keyed by barcode.
type Product struct {
	ID          string    `json:"id"`
	Barcode     string    `json:"barcode"`
	Name        string    `json:"name,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Packaging   string    `json:"packaging,omitempty"`
	Quantity    string    `json:"quantity,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Labels      string    `json:"labels,omitempty"`
	GenericName string    `json:"generic_name,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName falls back to the generic name and then the barcode.
func (p Product) DisplayName() string {
	switch {
	case strings.TrimSpace(p.Name) != "":
		return p.Name
	case strings.TrimSpace(p.GenericName) != "":
		return p.GenericName
	default:
		return p.Barcode
	}
}

// Matches reports whether query occurs in the name, brand, generic name or
// barcode, case-insensitively.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, field := range []string{p.Name, p.Brand, p.GenericName, p.Barcode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// SplitList splits an OpenFoodFacts list field on commas and semicolons and
// drops blank entries.
func SplitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
