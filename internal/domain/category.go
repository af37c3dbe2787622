package domain

import "sort"

// Waste category identifiers.
const (
	CategoryPfand      = "pfand"
	CategoryGelbeTonne = "gelbe_tonne"
	CategoryGlas       = "glas"
	CategoryPapier     = "papier"
	CategoryBio        = "bio"
	CategoryRestmuell  = "restmuell"
)

// WasteCategory describes one bin.
type WasteCategory struct {
	ID            string `json:"id"`
	NameDE        string `json:"name_de"`
	NameEN        string `json:"name_en"`
	DescriptionDE string `json:"description_de"`
	DescriptionEN string `json:"description_en"`
	IconName      string `json:"icon_name"`
	ColorHex      string `json:"color_hex"`
	SortOrder     int    `json:"sort_order"`
}

// Name returns the German name for "de" and the English one otherwise.
func (c WasteCategory) Name(lang string) string {
	if lang == "de" {
		return c.NameDE
	}
	return c.NameEN
}

// Description follows the same language rule as Name.
func (c WasteCategory) Description(lang string) string {
	if lang == "de" {
		return c.DescriptionDE
	}
	return c.DescriptionEN
}

var catalog = map[string]WasteCategory{
	CategoryGelbeTonne: {
		ID:            CategoryGelbeTonne,
		NameDE:        "Gelbe Tonne",
		NameEN:        "Yellow Bin",
		DescriptionDE: "Verpackungen aus Kunststoff, Metall oder Verbundstoffen gehören in die Gelbe Tonne.",
		DescriptionEN: "Packaging made of plastic, metal or composite materials belongs in the yellow bin.",
		IconName:      "ic_gelbe_tonne",
		ColorHex:      "#FFEB3B",
		SortOrder:     1,
	},
	CategoryPapier: {
		ID:            CategoryPapier,
		NameDE:        "Papier",
		NameEN:        "Paper",
		DescriptionDE: "Papier und Pappe gehören in die Papiertonne oder den Altpapiercontainer.",
		DescriptionEN: "Paper and cardboard belong in the paper bin or paper recycling container.",
		IconName:      "ic_papier",
		ColorHex:      "#4CAF50",
		SortOrder:     2,
	},
	CategoryGlas: {
		ID:            CategoryGlas,
		NameDE:        "Glas",
		NameEN:        "Glass",
		DescriptionDE: "Glasflaschen und -behälter gehören in den Glascontainer. Bitte nach Farben trennen.",
		DescriptionEN: "Glass bottles and containers belong in the glass container. Please separate by color.",
		IconName:      "ic_glas",
		ColorHex:      "#2196F3",
		SortOrder:     3,
	},
	CategoryBio: {
		ID:            CategoryBio,
		NameDE:        "Bio",
		NameEN:        "Organic",
		DescriptionDE: "Biologisch abbaubare Abfälle gehören in die Biotonne.",
		DescriptionEN: "Biodegradable waste belongs in the organic waste bin.",
		IconName:      "ic_bio",
		ColorHex:      "#8BC34A",
		SortOrder:     4,
	},
	CategoryRestmuell: {
		ID:            CategoryRestmuell,
		NameDE:        "Restmüll",
		NameEN:        "Residual Waste",
		DescriptionDE: "Nicht recycelbare Abfälle gehören in die Restmülltonne.",
		DescriptionEN: "Non-recyclable waste belongs in the residual waste bin.",
		IconName:      "ic_restmuell",
		ColorHex:      "#757575",
		SortOrder:     5,
	},
	CategoryPfand: {
		ID:            CategoryPfand,
		NameDE:        "Pfand",
		NameEN:        "Deposit",
		DescriptionDE: "Dieses Produkt hat Pfand. Bitte zurückgeben.",
		DescriptionEN: "This product has a deposit. Please return it.",
		IconName:      "ic_pfand",
		ColorHex:      "#FF9800",
		SortOrder:     6,
	},
}

// Category returns the built-in category with id.
func Category(id string) (WasteCategory, bool) {
	c, ok := catalog[id]
	return c, ok
}

// MustCategory is Category for ids known at compile time.
func MustCategory(id string) WasteCategory {
	c, ok := catalog[id]
	if !ok {
		panic("domain: unknown waste category " + id)
	}
	return c
}

// Categories returns the built-in categories ordered by SortOrder.
func Categories() []WasteCategory {
	out := make([]WasteCategory, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}
