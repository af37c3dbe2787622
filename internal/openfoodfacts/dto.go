package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

type productResponse struct {
	Status        flexInt     `json:"status"`
	StatusVerbose string      `json:"status_verbose"`
	Product       *productDTO `json:"product"`
}

type searchResponse struct {
	Products []productDTO `json:"products"`
	Count    flexInt      `json:"count"`
	Page     flexInt      `json:"page"`
	PageSize flexInt      `json:"page_size"`
}

type productDTO struct {
	Code        flexString      `json:"code"`
	ProductName string          `json:"product_name"`
	Brands      string          `json:"brands"`
	Categories  string          `json:"categories"`
	Packaging   string          `json:"packaging"`
	Quantity    string          `json:"quantity"`
	Ingredients []ingredientDTO `json:"ingredients"`
	Labels      string          `json:"labels"`
	GenericName string          `json:"generic_name"`
	ImageURL    string          `json:"image_url"`
}

type ingredientDTO struct {
	Text string `json:"text"`
}

func (d productDTO) toDomain(fallbackBarcode string, now time.Time) domain.Product {
	barcode := strings.TrimSpace(string(d.Code))
	if barcode == "" {
		barcode = fallbackBarcode
	}
	ingredients := make([]string, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		if text := strings.TrimSpace(ing.Text); text != "" {
			ingredients = append(ingredients, text)
		}
	}
	return domain.Product{
		ID:          barcode,
		Barcode:     barcode,
		Name:        strings.TrimSpace(d.ProductName),
		Brand:       strings.TrimSpace(d.Brands),
		Categories:  domain.SplitList(d.Categories),
		Packaging:   strings.TrimSpace(d.Packaging),
		Quantity:    strings.TrimSpace(d.Quantity),
		Ingredients: ingredients,
		Labels:      strings.TrimSpace(d.Labels),
		GenericName: strings.TrimSpace(d.GenericName),
		ImageURL:    strings.TrimSpace(d.ImageURL),
		UpdatedAt:   now,
	}
}

// flexInt accepts numbers and numeric strings; the search endpoint sends
// both depending on the field.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		v = int64(fl)
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts strings and bare numbers for barcodes.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}
