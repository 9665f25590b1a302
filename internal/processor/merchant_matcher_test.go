package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

func TestMatchMerchant(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		method string
	}{
		{"exact", "Bienvenue chez CARREFOUR\nTotal: 3,00", "CARREFOUR", "exact"},
		{"longest chain first", "PROXY DELHAIZE Ixelles", "PROXY DELHAIZE", "exact"},
		{"digit for letter", "CARREF0UR MARKET\n12/03/2024", "CARREFOUR", "fuzzy"},
		{"one letter dropped", "Delhaze s.a.\nTicket", "DELHAIZE", "fuzzy"},
		{"legal form ignored", "COLRUYT-NV\nTotal: 9,99", "COLRUYT", "exact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchMerchant(tt.text)
			require.True(t, got.Found)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.method, got.Method)
			assert.GreaterOrEqual(t, got.Similarity, merchantMatchThreshold)
		})
	}
}

func TestMatchMerchant_NoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"Boulangerie Dupont\nTotal: 2,40",
		"TICKET DE CAISSE\nMARCHE COUVERT",
		// Only the header lines are searched
		"a\nb\nc\nd\ne\nf\ng\nh\nCARREF0UR",
	} {
		got := MatchMerchant(text)
		assert.False(t, got.Found, text)
		assert.Equal(t, "not_found", got.Method)
	}
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, nameSimilarity("LIDL", "LIDL"))
	assert.InDelta(t, 87.5, nameSimilarity("DELHA1ZE", "DELHAIZE"), 0.01)
	assert.Equal(t, 0.0, nameSimilarity("", "ABC"))
	assert.Equal(t, 3, levenshteinDistance([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 1, levenshteinDistance([]rune("INTERMARCHE"), []rune("INTERMARCHÉ")))
}

func TestParseReceiptText_FuzzyMerchant(t *testing.T) {
	data := parseReceiptText("AUCHAM\n01/02/2024\nTotal: 15,00", fixedNow)
	assert.Equal(t, "AUCHAN", data.Merchant)
}

func TestCalculateReceiptConfidence(t *testing.T) {
	complete := models.OCRData{
		Merchant: "DELHAIZE",
		Total:    models.Float(6.20),
		Items: []models.LineItem{
			{Name: "Coca Cola", TotalPrice: 5.00},
			{Name: "Pain", TotalPrice: 1.20},
		},
	}
	exact := MerchantMatchResult{Found: true, Name: "DELHAIZE", Similarity: 100, Method: "exact"}

	best := CalculateReceiptConfidence(complete, 100, exact, true)
	assert.Equal(t, 100.0, best.OverallScore)
	assert.Equal(t, "high", best.OverallLevel)

	blurry := CalculateReceiptConfidence(complete, 20, exact, true)
	assert.Less(t, blurry.OverallScore, best.OverallScore)

	empty := CalculateReceiptConfidence(models.OCRData{}, 0, MerchantMatchResult{}, false)
	assert.Equal(t, 0.0, empty.OverallScore)
	assert.Equal(t, "very_low", empty.OverallLevel)
}

func TestFieldValidationScore(t *testing.T) {
	items := []models.LineItem{{Name: "a", TotalPrice: 4}, {Name: "b", TotalPrice: 6}}

	assert.Equal(t, 0.0, fieldValidationScore(models.OCRData{}))
	assert.Equal(t, 60.0, fieldValidationScore(models.OCRData{Total: models.Float(10)}))
	assert.Equal(t, 100.0, fieldValidationScore(models.OCRData{Total: models.Float(10), Items: items}))
	assert.Equal(t, 80.0, fieldValidationScore(models.OCRData{Total: models.Float(10.3), Items: items}))
	assert.Equal(t, 50.0, fieldValidationScore(models.OCRData{Total: models.Float(20), Items: items}))
	assert.Equal(t, 20.0, fieldValidationScore(models.OCRData{Total: models.Float(5), Items: items}))
}

func TestScaleConfidence(t *testing.T) {
	assert.InDelta(t, 0.15, scaleConfidence(-5), 1e-9)
	assert.InDelta(t, 0.5, scaleConfidence(150), 1e-9)
	assert.InDelta(t, 0.325, scaleConfidence(50), 1e-9)
}
