// interface.go - Capability interfaces implemented by every provider adapter
//
// Adapters never return Go errors for unsuccessful calls. HTTP failures,
// malformed replies and empty content all come back as a ProviderResult
// with Success=false and a diagnostic in Error.

package ai

import (
	"context"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// Provider is a named external analysis service.
type Provider interface {
	Name() string
}

// VisionAnalyzer extracts receipt fields from an image.
type VisionAnalyzer interface {
	Provider
	AnalyzeImage(ctx context.Context, img models.Image) models.ProviderResult
}

// TextCategorizer assigns an expense category to a short description.
type TextCategorizer interface {
	Provider
	Categorize(ctx context.Context, text, merchantHint string) models.ProviderResult
}

// ChatResponder answers a conversation.
type ChatResponder interface {
	Provider
	Chat(ctx context.Context, turns []models.ChatTurn, systemPrompt string) models.ProviderResult
}
