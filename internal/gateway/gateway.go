// gateway.go - Orchestrator routing analysis requests across providers
//
// Every operation sanitizes its payload, validates the assembled prompt,
// walks the capability cascade and finally falls back to an offline
// answer. Operations always return a result object.

package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/ai"
	"github.com/bosocmputer/expense_ai_gateway/internal/classifier"
	"github.com/bosocmputer/expense_ai_gateway/internal/common"
	"github.com/bosocmputer/expense_ai_gateway/internal/models"
	"github.com/bosocmputer/expense_ai_gateway/internal/processor"
	"github.com/bosocmputer/expense_ai_gateway/internal/quota"
	"github.com/bosocmputer/expense_ai_gateway/internal/ratelimit"
)

// DefaultProviderTimeout bounds one adapter call.
const DefaultProviderTimeout = 30 * time.Second

// MaxChatTurnLength bounds every chat turn after sanitization.
const MaxChatTurnLength = 2000

// OfflineChatReply is returned when no chat provider could answer.
const OfflineChatReply = "The assistant is not available right now. Your expenses are still recorded; please try again in a few minutes."

// Config wires the gateway dependencies. Registry and Quota are required.
type Config struct {
	Registry        *ai.Registry
	Quota           *quota.Tracker
	RateLimits      *ratelimit.Registry
	Audit           AuditSink
	LocalOCR        *processor.LocalOCR
	ProviderTimeout time.Duration
}

// Gateway is safe for concurrent use.
type Gateway struct {
	registry *ai.Registry
	quota    *quota.Tracker
	limits   *ratelimit.Registry
	audit    AuditSink
	localOCR *processor.LocalOCR
	timeout  time.Duration
	now      func() time.Time
}

// New creates a gateway. Missing optional parts get working defaults.
func New(cfg Config) *Gateway {
	g := &Gateway{
		registry: cfg.Registry,
		quota:    cfg.Quota,
		limits:   cfg.RateLimits,
		audit:    cfg.Audit,
		localOCR: cfg.LocalOCR,
		timeout:  cfg.ProviderTimeout,
		now:      time.Now,
	}
	if g.registry == nil {
		g.registry = ai.NewRegistry()
	}
	if g.quota == nil {
		g.quota = quota.NewTracker(quota.NewMemoryStore(), g.registry.Limits())
	}
	if g.audit == nil {
		g.audit = NewLogSink()
	}
	if g.localOCR == nil {
		g.localOCR = processor.NewLocalOCR("", 0)
	}
	if g.timeout <= 0 {
		g.timeout = DefaultProviderTimeout
	}
	return g
}

// AnalyzeReceipt extracts receipt fields from an image.
func (g *Gateway) AnalyzeReceipt(ctx context.Context, data []byte, mimeType string) OCRResult {
	rc := common.FromContext(ctx, "analyze_receipt")
	result := OCRResult{RequestID: rc.RequestID}

	rc.StartStep("sanitize_image")
	img := models.Image{Data: data, MIMEType: mimeType}
	clean, cleanMIME, err := processor.SanitizeImage(data, mimeType)
	if err != nil {
		// Best effort: the original bytes are sent as is
		rc.EndStep("failed", err)
	} else {
		img = models.Image{Data: clean, MIMEType: cleanMIME}
		rc.EndStep("success", nil)
	}

	if !processor.ValidatePrompt(ai.ReceiptOCRPrompt) {
		return g.receiptPolicyViolation(rc, result)
	}

	var out cascadeOutcome
	if len(img.Data) > 0 {
		rc.StartStep("vision_cascade")
		out = g.cascade(ctx, rc, models.CapabilityVisionOCR, func(ctx context.Context, name string) models.ProviderResult {
			v, _ := g.registry.Vision(name)
			res := v.AnalyzeImage(ctx, img)
			if res.Success && res.OCR == nil {
				return models.Failed(name, "reply has no receipt data")
			}
			return res
		})
		rc.EndStep(out.status(), nil)
	}

	switch {
	case out.ok:
		ocr := *out.result.OCR
		ensureReceiptCategory(&ocr)
		result.Success = true
		result.Provider = out.result.Provider
		result.Outcome = OutcomeProvider
		result.LatencyMs = out.result.LatencyMs
		result.Data = &ocr
	case out.canceled:
		result.Provider = ProviderLocal
		result.Outcome = OutcomeCanceled
		result.Error = context.Canceled.Error()
	default:
		rc.StartStep("local_ocr")
		start := time.Now()
		ocr := g.localOCR.Analyze(ctx, img.Data, img.MIMEType)
		rc.EndStep("success", nil)
		ensureReceiptCategory(&ocr)
		result.Success = ocr.Merchant != "" || ocr.Total != nil
		result.Provider = ProviderLocal
		result.Outcome = OutcomeFallback
		result.LatencyMs = time.Since(start).Milliseconds()
		result.Data = &ocr
		result.ProviderErrors = out.failures
		if !result.Success {
			result.Error = "no receipt fields recognized"
			rc.LogError("receipt unreadable after %d provider attempts", out.attempts)
		}
	}

	rc.LogSummary(string(result.Outcome))
	return result
}

func (g *Gateway) receiptPolicyViolation(rc *common.RequestContext, result OCRResult) OCRResult {
	rc.LogWarning("prompt rejected by policy")
	result.Outcome = OutcomePolicyViolation
	result.Error = ErrPolicyViolation.Error()
	rc.LogSummary(string(result.Outcome))
	return result
}

// ensureReceiptCategory fills a missing category from the rule classifier.
func ensureReceiptCategory(ocr *models.OCRData) {
	if ocr.Category != "" {
		return
	}
	var b strings.Builder
	b.WriteString(ocr.RawText)
	for _, item := range ocr.Items {
		b.WriteString(" ")
		b.WriteString(item.Name)
	}
	ocr.Category = classifier.Classify(b.String(), ocr.Merchant).Category
}

// CategorizeExpense assigns a category to a description.
func (g *Gateway) CategorizeExpense(ctx context.Context, description, merchantHint string) CategoryResult {
	rc := common.FromContext(ctx, "categorize_expense")
	result := CategoryResult{RequestID: rc.RequestID}

	text := processor.SanitizeText(description)
	hint := processor.SanitizeText(merchantHint)

	if !processor.ValidatePrompt(ai.CategorizePrompt(text, hint)) {
		rc.LogWarning("prompt rejected by policy")
		result.Category = models.CategoryOther
		result.Outcome = OutcomePolicyViolation
		result.Error = ErrPolicyViolation.Error()
		rc.LogSummary(string(result.Outcome))
		return result
	}

	rc.StartStep("categorize_cascade")
	out := g.cascade(ctx, rc, models.CapabilityTextCategorize, func(ctx context.Context, name string) models.ProviderResult {
		t, _ := g.registry.Text(name)
		res := t.Categorize(ctx, text, hint)
		if res.Success && res.Category == nil {
			return models.Failed(name, "reply has no category")
		}
		return res
	})
	rc.EndStep(out.status(), nil)

	if out.ok {
		result.Category = out.result.Category.Category
		result.Confidence = out.result.Category.Confidence
		result.Reasoning = out.result.Category.Reasoning
		result.Provider = out.result.Provider
		result.Outcome = OutcomeProvider
	} else {
		// The rule table is offline and instant, so even a canceled
		// request gets a category.
		local := classifier.Classify(text, hint)
		result.Category = local.Category
		result.Confidence = local.Confidence
		result.Reasoning = local.Reasoning
		result.Provider = ProviderRules
		result.Outcome = OutcomeFallback
		result.ProviderErrors = out.failures
		if out.canceled {
			result.Outcome = OutcomeCanceled
		}
	}

	rc.LogSummary(string(result.Outcome))
	return result
}

// Chat answers a conversation. When no provider answers, a canned FAQ
// reply is used if the last user turn matches a known intent; otherwise the
// reply is a fixed offline message with Success=false.
func (g *Gateway) Chat(ctx context.Context, turns []models.ChatTurn, systemPrompt string) ChatResult {
	rc := common.FromContext(ctx, "chat")
	result := ChatResult{RequestID: rc.RequestID}

	clean := make([]models.ChatTurn, 0, len(turns))
	var assembled strings.Builder
	system := processor.SanitizeTextLimit(systemPrompt, MaxChatTurnLength)
	assembled.WriteString(system)
	for _, t := range turns {
		content := processor.SanitizeTextLimit(t.Content, MaxChatTurnLength)
		clean = append(clean, models.ChatTurn{Role: t.Role, Content: content})
		assembled.WriteString("\n")
		assembled.WriteString(content)
	}

	if !processor.ValidatePrompt(assembled.String()) {
		rc.LogWarning("prompt rejected by policy")
		result.Outcome = OutcomePolicyViolation
		result.Error = ErrPolicyViolation.Error()
		rc.LogSummary(string(result.Outcome))
		return result
	}

	var out cascadeOutcome
	if endsWithUser(clean) {
		rc.StartStep("chat_cascade")
		out = g.cascade(ctx, rc, models.CapabilityChat, func(ctx context.Context, name string) models.ProviderResult {
			c, _ := g.registry.Chat(name)
			return c.Chat(ctx, clean, system)
		})
		rc.EndStep(out.status(), nil)
	} else {
		out.err = "conversation must end with a user turn"
	}

	switch {
	case out.ok:
		result.Success = true
		result.Provider = out.result.Provider
		result.Outcome = OutcomeProvider
		result.Message = out.result.Message
		result.LatencyMs = out.result.LatencyMs
	case out.canceled:
		result.Provider = ProviderLocal
		result.Outcome = OutcomeCanceled
		result.Error = context.Canceled.Error()
	default:
		result.Outcome = OutcomeFallback
		result.ProviderErrors = out.failures
		if answer, ok := g.answerOffline(rc, clean); ok {
			result.Success = true
			result.Provider = ProviderFAQ
			result.Message = answer.Response
			result.Intent = string(answer.Intent)
			result.Confidence = answer.Confidence
			break
		}
		result.Provider = ProviderLocal
		result.Message = OfflineChatReply
		result.Error = "no chat provider available"
		if out.err != "" {
			result.Error = out.err
		}
	}

	rc.LogSummary(string(result.Outcome))
	return result
}

// answerOffline looks for a canned answer to the final user turn.
func (g *Gateway) answerOffline(rc *common.RequestContext, turns []models.ChatTurn) (classifier.FAQAnswer, bool) {
	if !endsWithUser(turns) {
		return classifier.FAQAnswer{}, false
	}
	var last string
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleUser && strings.TrimSpace(turns[i].Content) != "" {
			last = turns[i].Content
			break
		}
	}
	answer, ok := classifier.AnswerFAQ(last, classifier.DefaultFAQConfidence)
	if ok {
		rc.LogInfo("answered from FAQ, intent=%s confidence=%.2f", answer.Intent, answer.Confidence)
	}
	return answer, ok
}

func endsWithUser(turns []models.ChatTurn) bool {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleSystem || strings.TrimSpace(turns[i].Content) == "" {
			continue
		}
		return turns[i].Role == models.RoleUser
	}
	return false
}

// ParseExpenseCommand turns a free-text note into an ExpenseCommand. It
// returns nil when nothing usable is found or the note is rejected by
// policy.
func (g *Gateway) ParseExpenseCommand(ctx context.Context, text string) *ExpenseCommand {
	rc := common.FromContext(ctx, "parse_expense_command")
	now := g.now()

	clean := processor.SanitizeText(text)
	if clean == "" {
		rc.LogSummary("empty")
		return nil
	}
	prompt := ai.ExpenseCommandPrompt(clean, now.Format("2006-01-02"))
	if !processor.ValidatePrompt(prompt) {
		rc.LogWarning("prompt rejected by policy")
		rc.LogSummary(string(OutcomePolicyViolation))
		return nil
	}

	var cmd *ExpenseCommand
	turns := []models.ChatTurn{{Role: models.RoleUser, Content: prompt}}
	rc.StartStep("command_cascade")
	out := g.cascade(ctx, rc, models.CapabilityChat, func(ctx context.Context, name string) models.ProviderResult {
		c, _ := g.registry.Chat(name)
		res := c.Chat(ctx, turns, ai.CommandSystemPrompt)
		if !res.Success {
			return res
		}
		cmd = commandFromReply(res.Message)
		if cmd == nil {
			return models.Failed(name, "reply is not an expense command")
		}
		cmd.Source = name
		return res
	})
	rc.EndStep(out.status(), nil)

	switch {
	case out.ok:
	case out.canceled:
		rc.LogSummary(string(OutcomeCanceled))
		return nil
	default:
		cmd = parseCommandLocally(clean, now)
		if cmd == nil {
			rc.LogSummary("empty")
			return nil
		}
	}

	if cmd.Category == "" {
		cmd.Category = classifier.Classify(cmd.Description, cmd.Merchant).Category
	}
	if out.ok {
		rc.LogSummary(string(OutcomeProvider))
	} else {
		rc.LogSummary(string(OutcomeFallback))
	}
	return cmd
}

// GetUsageStats returns the usage snapshot of every configured provider.
func (g *Gateway) GetUsageStats(ctx context.Context) map[string]quota.UsageStats {
	return g.quota.Usage(ctx)
}

// Providers lists the configured provider names.
func (g *Gateway) Providers() []string {
	return g.registry.Names()
}
