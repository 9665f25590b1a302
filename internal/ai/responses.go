// responses.go - Normalize parsed model replies into domain records

package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
	"github.com/bosocmputer/expense_ai_gateway/internal/parser"
)

var (
	errNoJSON         = errors.New("reply contains no JSON object")
	errNoReceiptField = errors.New("reply has neither merchant nor total")
	errNoCategory     = errors.New("reply has no category")
)

// Default confidences when a model omits its own estimate.
const (
	defaultOCRConfidence      = 0.8
	defaultCategoryConfidence = 0.75
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "02.01.2006", "2006/01/02"}

// decodeReceipt converts a model reply into OCRData.
func decodeReceipt(reply string, now time.Time) (*models.OCRData, error) {
	rec := parser.Parse(reply)
	if rec == nil {
		return nil, errNoJSON
	}

	data := &models.OCRData{
		Merchant:   rec.String("merchant"),
		Date:       normalizeDate(rec.String("date"), now),
		Items:      []models.LineItem{},
		Confidence: confidence(rec, defaultOCRConfidence),
	}
	if total, ok := rec.Float("total"); ok {
		data.Total = models.Float(total)
	}
	if data.Merchant == "" && data.Total == nil {
		return nil, errNoReceiptField
	}
	if c, ok := models.ParseCategory(rec.String("category")); ok {
		data.Category = c
	}

	for _, item := range rec.Records("items") {
		name := item.String("name")
		price, ok := item.Float("total_price")
		if name == "" || !ok {
			continue
		}
		li := models.LineItem{Name: name, TotalPrice: price}
		if q, ok := item.Float("quantity"); ok {
			li.Quantity = models.Float(q)
		}
		if u, ok := item.Float("unit_price"); ok {
			li.UnitPrice = models.Float(u)
		}
		data.Items = append(data.Items, li)
	}
	return data, nil
}

// decodeCategory converts a model reply into CategoryData. A category
// outside the known set is a failure, not "other".
func decodeCategory(reply string) (*models.CategoryData, error) {
	rec := parser.Parse(reply)
	if rec == nil {
		return nil, errNoJSON
	}
	if !rec.Has("category") {
		return nil, errNoCategory
	}
	raw := rec.String("category")
	c, ok := models.ParseCategory(raw)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", raw)
	}
	return &models.CategoryData{
		Category:   c,
		Confidence: confidence(rec, defaultCategoryConfidence),
		Reasoning:  rec.String("reasoning"),
	}, nil
}

func confidence(rec *parser.Record, def float64) float64 {
	v, ok := rec.Float("confidence")
	if !ok || v <= 0 {
		return def
	}
	// Some models answer in percent
	if v > 1 && v <= 100 {
		v /= 100
	}
	if v > 1 {
		v = 1
	}
	return v
}

// normalizeDate returns s as YYYY-MM-DD, or today when s cannot be read.
func normalizeDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return now.Format("2006-01-02")
}

// resultFromReceipt wraps a decoded receipt or its error.
func resultFromReceipt(provider, reply string, now time.Time) models.ProviderResult {
	data, err := decodeReceipt(reply, now)
	if err != nil {
		return models.Failed(provider, err.Error())
	}
	return models.ProviderResult{Success: true, Provider: provider, OCR: data}
}

// resultFromCategory wraps a decoded category or its error.
func resultFromCategory(provider, reply string) models.ProviderResult {
	data, err := decodeCategory(reply)
	if err != nil {
		return models.Failed(provider, err.Error())
	}
	return models.ProviderResult{Success: true, Provider: provider, Category: data}
}

// resultFromChat wraps a chat reply. Empty content is a failure.
func resultFromChat(provider, reply string) models.ProviderResult {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return models.Failed(provider, "empty reply")
	}
	return models.ProviderResult{Success: true, Provider: provider, Message: reply}
}
