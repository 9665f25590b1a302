// results.go - Result objects returned by every gateway operation

package gateway

import (
	"context"
	"errors"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// ErrPolicyViolation is reported when an assembled prompt fails validation.
var ErrPolicyViolation = errors.New("request rejected by privacy policy")

// Outcome tells how an operation produced its result.
type Outcome string

const (
	OutcomeProvider        Outcome = "provider"
	OutcomeFallback        Outcome = "fallback"
	OutcomePolicyViolation Outcome = "policy_violation"
	OutcomeCanceled        Outcome = "canceled"
)

// Err maps the outcomes that are not ordinary results to an error.
func (o Outcome) Err() error {
	switch o {
	case OutcomePolicyViolation:
		return ErrPolicyViolation
	case OutcomeCanceled:
		return context.Canceled
	}
	return nil
}

// Provider ids reported for offline answers
const (
	ProviderLocal = "local"
	ProviderRules = "rules"
	ProviderFAQ   = "faq"
)

// OCRResult is returned by AnalyzeReceipt.
type OCRResult struct {
	Success   bool            `json:"success"`
	Provider  string          `json:"provider"`
	Outcome   Outcome         `json:"outcome"`
	RequestID string          `json:"request_id"`
	LatencyMs int64           `json:"latency_ms"`
	Data      *models.OCRData `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	// ProviderErrors maps every provider that failed to its error.
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
}

// CategoryResult is returned by CategorizeExpense.
type CategoryResult struct {
	Category   models.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning,omitempty"`
	Provider   string          `json:"provider"`
	Outcome    Outcome         `json:"outcome"`
	RequestID  string          `json:"request_id"`
	Error      string          `json:"error,omitempty"`

	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
}

// ChatResult is returned by Chat.
type ChatResult struct {
	Success   bool    `json:"success"`
	Provider  string  `json:"provider"`
	Outcome   Outcome `json:"outcome"`
	RequestID string  `json:"request_id"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
	LatencyMs int64   `json:"latency_ms"`
	// Intent and Confidence are set for FAQ answers.
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
}

// ExpenseCommand is the structured form of a free-text expense note.
type ExpenseCommand struct {
	Amount      *float64        `json:"amount,omitempty"`
	Description string          `json:"description,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        string          `json:"date,omitempty"`
	Category    models.Category `json:"category,omitempty"`
	Source      string          `json:"source"`
}
