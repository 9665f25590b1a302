// models.go - Shared domain types exchanged between the gateway, adapters and fallbacks

package models

import (
	"strings"
	"time"
)

// Capability identifies one kind of work a provider can perform.
type Capability string

const (
	CapabilityVisionOCR      Capability = "vision-ocr"
	CapabilityTextCategorize Capability = "text-categorize"
	CapabilityChat           Capability = "chat"
)

// Category is an expense category understood by the whole system.
type Category string

const (
	CategoryGroceries     Category = "groceries"
	CategoryUtilities     Category = "utilities"
	CategoryInternet      Category = "internet"
	CategoryRent          Category = "rent"
	CategoryCleaning      Category = "cleaning"
	CategoryEntertainment Category = "entertainment"
	CategoryTransport     Category = "transport"
	CategoryHealth        Category = "health"
	CategoryOther         Category = "other"
)

// AllCategories lists every category, "other" last.
var AllCategories = []Category{
	CategoryGroceries,
	CategoryUtilities,
	CategoryInternet,
	CategoryRent,
	CategoryCleaning,
	CategoryEntertainment,
	CategoryTransport,
	CategoryHealth,
	CategoryOther,
}

// ParseCategory normalizes a category name coming from a model reply.
func ParseCategory(s string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range AllCategories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

// Image is an image payload ready to leave the process.
type Image struct {
	Data     []byte
	MIMEType string
}

// ChatRole is the author of a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatTurn is one message of a conversation.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// LineItem is a single purchased item read from a receipt.
type LineItem struct {
	Name       string   `json:"name"`
	Quantity   *float64 `json:"quantity,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice float64  `json:"total_price"`
}

// OCRData holds the fields extracted from a receipt image.
type OCRData struct {
	Merchant   string     `json:"merchant,omitempty"`
	Total      *float64   `json:"total,omitempty"`
	Date       string     `json:"date,omitempty"` // YYYY-MM-DD
	Items      []LineItem `json:"items"`
	Category   Category   `json:"category,omitempty"`
	Confidence float64    `json:"confidence"`

	// RawText is the recognized text, kept in-process only.
	RawText string `json:"-"`
}

// CategoryData is a categorization answer.
type CategoryData struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// ProviderResult is the normalized outcome of one adapter call.
// Provider-specific wire formats never leave the adapter.
type ProviderResult struct {
	Success   bool          `json:"success"`
	Provider  string        `json:"provider"`
	LatencyMs int64         `json:"latency_ms"`
	OCR       *OCRData      `json:"ocr,omitempty"`
	Category  *CategoryData `json:"category,omitempty"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Failed builds an unsuccessful result with a diagnostic string.
func Failed(provider, diagnostic string) ProviderResult {
	return ProviderResult{Provider: provider, Error: diagnostic}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// AuditLogEntry records one dispatch attempt. It carries metadata only,
// never request or response content.
type AuditLogEntry struct {
	Timestamp  time.Time  `json:"timestamp" bson:"timestamp"`
	RequestID  string     `json:"request_id" bson:"request_id"`
	Provider   string     `json:"provider" bson:"provider"`
	Capability Capability `json:"capability" bson:"capability"`
	Success    bool       `json:"success" bson:"success"`
	LatencyMs  int64      `json:"latency_ms" bson:"latency_ms"`
	Counter    int64      `json:"counter" bson:"counter"`
	Limit      int64      `json:"limit" bson:"limit"`
}
