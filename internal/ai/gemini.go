// gemini.go - Google Gemini adapter built on the generative-ai-go SDK

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

const (
	geminiTemperature = float32(0.1)
	geminiMaxTokens   = int32(2048)
)

// geminiRequest is everything one GenerateContent call needs.
type geminiRequest struct {
	system  string
	history []*genai.Content
	parts   []genai.Part
	schema  *genai.Schema
	json    bool
}

// geminiBackend is the narrow surface of the SDK the adapter uses.
type geminiBackend interface {
	generate(ctx context.Context, req geminiRequest) (*genai.GenerateContentResponse, error)
	close() error
}

// GeminiProvider implements every capability with one Gemini model.
type GeminiProvider struct {
	backend geminiBackend
	now     func() time.Time
}

// NewGeminiProvider creates the SDK client once; it is reused by all calls
// and released by Close.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", ProviderGemini)
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{
		backend: &sdkBackend{client: client, modelName: modelName},
		now:     time.Now,
	}, nil
}

// Name returns "gemini"
func (g *GeminiProvider) Name() string {
	return ProviderGemini
}

// Close releases the SDK client.
func (g *GeminiProvider) Close() error {
	return g.backend.close()
}

// AnalyzeImage sends the receipt image with the OCR prompt.
func (g *GeminiProvider) AnalyzeImage(ctx context.Context, img models.Image) models.ProviderResult {
	reply, err := g.call(ctx, geminiRequest{
		parts: []genai.Part{
			genai.Text(ReceiptOCRPrompt),
			genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		},
		schema: receiptSchema(),
		json:   true,
	})
	if err != nil {
		return models.Failed(ProviderGemini, err.Error())
	}
	return resultFromReceipt(ProviderGemini, reply, g.now())
}

// Categorize asks for a category constrained to the known set.
func (g *GeminiProvider) Categorize(ctx context.Context, text, merchantHint string) models.ProviderResult {
	reply, err := g.call(ctx, geminiRequest{
		parts:  []genai.Part{genai.Text(CategorizePrompt(text, merchantHint))},
		schema: categorySchema(),
		json:   true,
	})
	if err != nil {
		return models.Failed(ProviderGemini, err.Error())
	}
	return resultFromCategory(ProviderGemini, reply)
}

// Chat continues the conversation. Gemini names the assistant role "model".
func (g *GeminiProvider) Chat(ctx context.Context, turns []models.ChatTurn, systemPrompt string) models.ProviderResult {
	history, last, ok := lastUserTurn(turns)
	if !ok {
		return models.Failed(ProviderGemini, "conversation must end with a user turn")
	}
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}

	reply, err := g.call(ctx, geminiRequest{
		system:  chatSystem(systemPrompt),
		history: contents,
		parts:   []genai.Part{genai.Text(last)},
	})
	if err != nil {
		return models.Failed(ProviderGemini, err.Error())
	}
	return resultFromChat(ProviderGemini, reply)
}

// call runs one request and returns the text of the first candidate.
func (g *GeminiProvider) call(ctx context.Context, req geminiRequest) (string, error) {
	resp, err := g.backend.generate(ctx, req)
	if err != nil {
		return "", categorizeError(ProviderGemini, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini API")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return "", fmt.Errorf("response blocked by safety filters")
		}
		return "", fmt.Errorf("empty response from Gemini API")
	}
	return b.String(), nil
}

// sdkBackend calls the real API.
type sdkBackend struct {
	client    *genai.Client
	modelName string
}

func (b *sdkBackend) generate(ctx context.Context, req geminiRequest) (*genai.GenerateContentResponse, error) {
	model := b.client.GenerativeModel(b.modelName)
	model.SetTemperature(geminiTemperature)
	model.SetMaxOutputTokens(geminiMaxTokens)
	if req.json {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.schema
	}
	if req.system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.system)}}
	}

	if len(req.history) > 0 {
		cs := model.StartChat()
		cs.History = req.history
		return cs.SendMessage(ctx, req.parts...)
	}
	return model.GenerateContent(ctx, req.parts...)
}

func (b *sdkBackend) close() error {
	return b.client.Close()
}

// receiptSchema describes the OCR reply.
func receiptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"merchant": {Type: genai.TypeString, Nullable: true, Description: "Shop name printed on the receipt"},
			"total":    {Type: genai.TypeNumber, Nullable: true, Description: "Amount paid"},
			"date":     {Type: genai.TypeString, Nullable: true, Description: "Purchase date as YYYY-MM-DD"},
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":        {Type: genai.TypeString},
						"quantity":    {Type: genai.TypeNumber, Nullable: true},
						"unit_price":  {Type: genai.TypeNumber, Nullable: true},
						"total_price": {Type: genai.TypeNumber},
					},
					Required: []string{"name", "total_price"},
				},
			},
			"category":   {Type: genai.TypeString, Enum: categoryEnum()},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"merchant", "total", "date", "items", "confidence"},
	}
}

// categorySchema describes the categorization reply.
func categorySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category":   {Type: genai.TypeString, Enum: categoryEnum()},
			"confidence": {Type: genai.TypeNumber},
			"reasoning":  {Type: genai.TypeString},
		},
		Required: []string{"category", "confidence"},
	}
}

func categoryEnum() []string {
	out := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		out[i] = string(c)
	}
	return out
}
