package classify

import (
	"testing"

	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		product *domain.Product
		want    string
	}{
		{"nil product", nil, domain.CategoryRestmuell},
		{"empty product", &domain.Product{}, domain.CategoryRestmuell},
		{"pfand in packaging", &domain.Product{Packaging: "Einweg-Pfand, Kunststoff"}, domain.CategoryPfand},
		{"deposit label", &domain.Product{Labels: "Deposit"}, domain.CategoryPfand},
		{"german beverage barcode", &domain.Product{Barcode: "4001234567890", Categories: []string{"Getränke"}}, domain.CategoryPfand},
		{"german barcode without beverage", &domain.Product{Barcode: "4001234567890", Categories: []string{"Snacks"}}, domain.CategoryRestmuell},
		{"plastic", &domain.Product{Packaging: "Plastic bag"}, domain.CategoryGelbeTonne},
		{"polymer code", &domain.Product{Packaging: "Schale, PP 5"}, domain.CategoryGelbeTonne},
		{"beverage carton", &domain.Product{Packaging: "Getränkekarton"}, domain.CategoryGelbeTonne},
		{"tetra pak", &domain.Product{Packaging: "Tetra Pak"}, domain.CategoryGelbeTonne},
		{"glass jar", &domain.Product{Packaging: "Glas"}, domain.CategoryGlas},
		{"paper", &domain.Product{Packaging: "paper"}, domain.CategoryPapier},
		{"cardboard box", &domain.Product{Packaging: "Karton"}, domain.CategoryPapier},
		{"compostable", &domain.Product{Packaging: "kompostierbar"}, domain.CategoryBio},
		{"beverage in glass via categories", &domain.Product{Packaging: "Mehrwegglasflasche", Categories: []string{"Drinks"}}, domain.CategoryGlas},
		{"organic label", &domain.Product{Labels: "EU Organic"}, domain.CategoryBio},
		{"recyclable label", &domain.Product{Labels: "Recyclable"}, domain.CategoryGelbeTonne},
		{"unknown packaging", &domain.Product{Packaging: "foil wrap"}, domain.CategoryRestmuell},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify(tt.product)
			require.Equal(t, tt.want, got.ID)
			require.NotEmpty(t, got.ColorHex)
		})
	}
}

func TestClassifyReturnsCatalogEntry(t *testing.T) {
	t.Parallel()

	got := New().Classify(&domain.Product{Packaging: "Dose"})
	require.Equal(t, domain.MustCategory(domain.CategoryGelbeTonne), got)
	require.Equal(t, "Yellow Bin", got.Name("en"))
}

func TestContainsToken(t *testing.T) {
	t.Parallel()

	require.True(t, containsToken("schale (pe)", plasticCodes))
	require.False(t, containsToken("paper", plasticCodes))
	require.False(t, containsToken("organic", plasticCodes))
}
