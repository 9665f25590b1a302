// prompts.go - Prompt templates shared by every provider adapter
//
// Prompts are assembled from already sanitized text. The gateway validates
// the exact string produced here before any adapter is called, so adapters
// must build their prompts with these same functions.

package ai

import (
	"fmt"
	"strings"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// ============================================================================
// RECEIPT OCR
// ============================================================================

// ReceiptOCRPrompt asks a vision model for the receipt fields as JSON.
const ReceiptOCRPrompt = `You read photos of shop receipts from Belgium and France.
Extract the following fields and answer with a single JSON object, no prose:

{
  "merchant": "shop name as printed at the top of the receipt",
  "total": 0.00,
  "date": "YYYY-MM-DD",
  "items": [
    {"name": "item label", "quantity": 1, "unit_price": 0.00, "total_price": 0.00}
  ],
  "category": "one of: ` + categoryChoices + `",
  "confidence": 0.0
}

Rules:
- Amounts are numbers with a dot as decimal separator (45,30 becomes 45.30).
- "total" is the amount actually paid, not a subtotal or a VAT line.
- Use null for a field you cannot read. Never invent values.
- "confidence" is your own estimate between 0 and 1.`

// ============================================================================
// CATEGORIZATION
// ============================================================================

const categoryChoices = "groceries, utilities, internet, rent, cleaning, entertainment, transport, health, other"

// CategorizePrompt builds the categorization prompt for a description and
// an optional merchant hint.
func CategorizePrompt(description, merchantHint string) string {
	var b strings.Builder
	b.WriteString("Classify this household expense into exactly one category.\n")
	b.WriteString("Categories: " + categoryChoices + ".\n\n")
	b.WriteString("Expense: " + description + "\n")
	if merchantHint != "" {
		b.WriteString("Merchant: " + merchantHint + "\n")
	}
	b.WriteString(`
Answer with a single JSON object, no prose:
{"category": "<category>", "confidence": 0.0, "reasoning": "one short sentence"}`)
	return b.String()
}

// ============================================================================
// CHAT AND COMMANDS
// ============================================================================

// DefaultChatSystemPrompt is used when the caller does not provide one.
const DefaultChatSystemPrompt = `You are a helpful assistant for a shared household expense tracker.
Answer briefly in the language of the question. You only know what the
conversation tells you about the household.`

// CommandSystemPrompt turns a chat model into an expense command parser.
const CommandSystemPrompt = `You convert short natural language expense notes into structured data.
Answer with a single JSON object and nothing else.`

// ExpenseCommandPrompt asks for the structured form of a spoken or typed
// expense command such as "paid 45,30 at Carrefour yesterday".
func ExpenseCommandPrompt(text string, today string) string {
	return fmt.Sprintf(`Today is %s.
Note: %s

Return:
{
  "amount": 0.00,
  "description": "what was bought",
  "merchant": "shop name or null",
  "date": "YYYY-MM-DD",
  "category": "one of: %s"
}
Use null for anything the note does not say.`, today, text, categoryChoices)
}

// chatSystem returns the system prompt to send for a chat call.
func chatSystem(systemPrompt string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		return DefaultChatSystemPrompt
	}
	return systemPrompt
}

// lastUserTurn splits a conversation into history and the final user turn.
// System turns are dropped; the system prompt travels separately.
func lastUserTurn(turns []models.ChatTurn) (history []models.ChatTurn, last string, ok bool) {
	var filtered []models.ChatTurn
	for _, t := range turns {
		if t.Role == models.RoleSystem || strings.TrimSpace(t.Content) == "" {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Role != models.RoleUser {
		return nil, "", false
	}
	return filtered[:len(filtered)-1], filtered[len(filtered)-1].Content, true
}
