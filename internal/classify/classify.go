// Package classify maps a product's packaging, categories and labels to the
// bin it belongs in.
package classify

import (
	"strings"
	"unicode"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

// Rules are checked in order: deposit, packaging, categories, labels. The
// first match wins and unmatched products default to Restmüll.
var (
	pfandWords     = []string{"pfand", "deposit"}
	beverageWords  = []string{"getränk", "drink", "beverage"}
	pfandPrefixes  = []string{"400", "401", "402"}
	plasticWords   = []string{"plastic", "kunststoff", "aluminium", "aluminum", "metall", "metal", "dose", "tetra"}
	plasticCodes   = []string{"pet", "pe", "pp", "ps", "pvc", "can"}
	glassWords     = []string{"glass", "glas"}
	paperWords     = []string{"paper", "papier", "cardboard", "pappe", "karton", "carton"}
	organicWords   = []string{"bio", "organic", "biologisch", "kompostierbar", "compostable"}
	produceWords   = []string{"bio", "organic", "obst", "gemüse", "fruit", "vegetable"}
	organicLabels  = []string{"bio", "organic", "biologisch"}
	recyclingWords = []string{"recycling", "recycelbar", "recyclable"}
)

// Classifier decides the waste category of a product. It is stateless and
// safe for concurrent use.
type Classifier struct{}

// New returns a Classifier.
func New() Classifier {
	return Classifier{}
}

// Classify returns the bin for p. A nil product is Restmüll.
func (Classifier) Classify(p *domain.Product) domain.WasteCategory {
	if p == nil {
		return domain.MustCategory(domain.CategoryRestmuell)
	}
	for _, rule := range []func(*domain.Product) string{checkPfand, checkPackaging, checkCategories, checkLabels} {
		if id := rule(p); id != "" {
			return domain.MustCategory(id)
		}
	}
	return domain.MustCategory(domain.CategoryRestmuell)
}

// ID is Classify reduced to the category id.
func (c Classifier) ID(p *domain.Product) string {
	return c.Classify(p).ID
}

func checkPfand(p *domain.Product) string {
	packaging := strings.ToLower(p.Packaging)
	labels := strings.ToLower(p.Labels)
	if containsAny(packaging, pfandWords) || containsAny(labels, pfandWords) {
		return domain.CategoryPfand
	}
	if !hasAnyPrefix(p.Barcode, pfandPrefixes) {
		return ""
	}
	for _, c := range p.Categories {
		if containsAny(strings.ToLower(c), beverageWords) {
			return domain.CategoryPfand
		}
	}
	return ""
}

func checkPackaging(p *domain.Product) string {
	packaging := strings.ToLower(p.Packaging)
	if packaging == "" {
		return ""
	}
	switch {
	case containsAny(packaging, plasticWords),
		containsToken(packaging, plasticCodes),
		strings.Contains(packaging, "karton") && strings.Contains(packaging, "getränk"):
		return domain.CategoryGelbeTonne
	case containsAny(packaging, glassWords):
		return domain.CategoryGlas
	case containsAny(packaging, paperWords):
		return domain.CategoryPapier
	case containsAny(packaging, organicWords):
		return domain.CategoryBio
	}
	return ""
}

func checkCategories(p *domain.Product) string {
	packaging := strings.ToLower(p.Packaging)
	for _, c := range p.Categories {
		c = strings.ToLower(c)
		if containsAny(c, produceWords) && containsAny(packaging, []string{"bio", "organic"}) {
			return domain.CategoryBio
		}
		if containsAny(c, beverageWords) && strings.Contains(packaging, "glas") {
			return domain.CategoryGlas
		}
	}
	return ""
}

func checkLabels(p *domain.Product) string {
	labels := strings.ToLower(p.Labels)
	switch {
	case labels == "":
		return ""
	case containsAny(labels, organicLabels):
		return domain.CategoryBio
	case containsAny(labels, recyclingWords):
		return domain.CategoryGelbeTonne
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsToken matches short material codes such as "pe" only as whole
// words so that "paper" is not read as polyethylene.
func containsToken(s string, codes []string) bool {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		for _, code := range codes {
			if tok == code {
				return true
			}
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
