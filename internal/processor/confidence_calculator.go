// confidence_calculator.go - Weighted confidence score for receipts read offline
//
// The score combines image quality, field completeness, consistency of the
// amounts and how well the merchant matched a known chain.

package processor

import (
	"math"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// ConfidenceFactors holds each factor score (0-100).
type ConfidenceFactors struct {
	ImageQuality    float64 `json:"image_quality"`
	Completeness    float64 `json:"completeness"`
	FieldValidation float64 `json:"field_validation"`
	MerchantMatch   float64 `json:"merchant_match"`
}

// ConfidenceWeights must sum to 1.0.
type ConfidenceWeights struct {
	ImageQuality    float64
	Completeness    float64
	FieldValidation float64
	MerchantMatch   float64
}

// DefaultWeights are used by the offline engine.
var DefaultWeights = ConfidenceWeights{
	ImageQuality:    0.35,
	Completeness:    0.30,
	FieldValidation: 0.20,
	MerchantMatch:   0.15,
}

// ConfidenceResult is the weighted score with its factors.
type ConfidenceResult struct {
	OverallScore float64           `json:"overall_score"` // 0-100
	OverallLevel string            `json:"overall_level"`
	Factors      ConfidenceFactors `json:"factors"`
}

// CalculateReceiptConfidence scores a parsed receipt. dateFound tells
// whether the date was printed on the ticket rather than defaulted.
func CalculateReceiptConfidence(data models.OCRData, quality float64, merchant MerchantMatchResult, dateFound bool) ConfidenceResult {
	factors := ConfidenceFactors{
		ImageQuality:    math.Max(0, math.Min(100, quality)),
		Completeness:    completenessScore(data, dateFound),
		FieldValidation: fieldValidationScore(data),
		MerchantMatch:   merchantScore(data, merchant),
	}

	overall := factors.ImageQuality*DefaultWeights.ImageQuality +
		factors.Completeness*DefaultWeights.Completeness +
		factors.FieldValidation*DefaultWeights.FieldValidation +
		factors.MerchantMatch*DefaultWeights.MerchantMatch
	overall = math.Round(overall*100) / 100

	return ConfidenceResult{
		OverallScore: overall,
		OverallLevel: determineConfidenceLevel(overall),
		Factors:      factors,
	}
}

func completenessScore(data models.OCRData, dateFound bool) float64 {
	filled := 0
	if data.Merchant != "" {
		filled++
	}
	if data.Total != nil {
		filled++
	}
	if dateFound {
		filled++
	}
	if len(data.Items) > 0 {
		filled++
	}
	return float64(filled) * 25
}

// fieldValidationScore checks the total against the line items.
func fieldValidationScore(data models.OCRData) float64 {
	if data.Total == nil || *data.Total <= 0 || *data.Total >= maxReceiptAmount {
		return 0
	}
	if len(data.Items) == 0 {
		return 60
	}

	var sum float64
	for _, item := range data.Items {
		sum += item.TotalPrice
	}
	diff := math.Abs(sum - *data.Total)
	switch {
	case diff <= 0.01:
		return 100
	case diff <= *data.Total*0.05:
		return 80
	case sum < *data.Total:
		// Some items were not recognized
		return 50
	default:
		return 20
	}
}

func merchantScore(data models.OCRData, match MerchantMatchResult) float64 {
	switch {
	case match.Found:
		return match.Similarity
	case data.Merchant != "":
		return 40
	default:
		return 0
	}
}

func determineConfidenceLevel(score float64) string {
	switch {
	case score >= 85:
		return "high"
	case score >= 70:
		return "medium"
	case score >= 50:
		return "low"
	default:
		return "very_low"
	}
}
