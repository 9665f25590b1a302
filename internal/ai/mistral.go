// mistral.go - Mistral AI client: document OCR for receipts, chat completions for text

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
	"github.com/bosocmputer/expense_ai_gateway/internal/processor"
)

// mistralOCRConfidence is assigned to receipts read through /v1/ocr since
// the fields come from text heuristics, not from the model.
const mistralOCRConfidence = 0.6

// MistralProvider implements vision through the OCR endpoint and delegates
// categorization and chat to the chat completions API.
type MistralProvider struct {
	apiKey    string
	baseURL   string
	ocrModel  string
	client    *http.Client
	chat      *OpenAICompatProvider
	parseText func(string) models.OCRData
}

// NewMistralProvider creates a new Mistral AI provider
func NewMistralProvider(apiKey, chatModel, ocrModel string) (*MistralProvider, error) {
	chat, err := NewOpenAICompatProvider(ProviderMistral, MistralBaseURL, apiKey, chatModel, "")
	if err != nil {
		return nil, err
	}
	return &MistralProvider{
		apiKey:    apiKey,
		baseURL:   MistralBaseURL,
		ocrModel:  ocrModel,
		client:    &http.Client{Timeout: 60 * time.Second},
		chat:      chat,
		parseText: processor.ParseReceiptText,
	}, nil
}

// Name returns "mistral"
func (m *MistralProvider) Name() string {
	return ProviderMistral
}

// Mistral OCR API request/response structures
type mistralOCRDocument struct {
	Type     string `json:"type"`                // "image_url" for base64 data URLs
	ImageURL string `json:"image_url,omitempty"` // data:<mime>;base64,...
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralOCRUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
}

type mistralOCRResponse struct {
	Model     string              `json:"model"`
	Pages     []mistralOCRPage    `json:"pages"`
	UsageInfo mistralOCRUsageInfo `json:"usage_info"`
}

// AnalyzeImage reads the receipt text with the OCR model and extracts the
// fields locally.
func (m *MistralProvider) AnalyzeImage(ctx context.Context, img models.Image) models.ProviderResult {
	request := mistralOCRRequest{
		Model: m.ocrModel,
		Document: mistralOCRDocument{
			Type:     "image_url",
			ImageURL: fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
		},
	}

	response, err := m.callOCR(ctx, request)
	if err != nil {
		return models.Failed(ProviderMistral, err.Error())
	}
	if len(response.Pages) == 0 {
		return models.Failed(ProviderMistral, "no pages returned from OCR")
	}

	// Combine all pages' markdown content
	var extractedText strings.Builder
	for i, page := range response.Pages {
		if i > 0 {
			extractedText.WriteString("\n\n")
		}
		extractedText.WriteString(page.Markdown)
	}
	text := strings.TrimSpace(extractedText.String())
	if text == "" {
		return models.Failed(ProviderMistral, "OCR returned no text")
	}

	data := m.parseText(stripMarkdown(text))
	if data.Merchant == "" && data.Total == nil {
		return models.Failed(ProviderMistral, errNoReceiptField.Error())
	}
	data.Confidence = mistralOCRConfidence
	return models.ProviderResult{Success: true, Provider: ProviderMistral, OCR: &data}
}

// Categorize delegates to the chat completions API.
func (m *MistralProvider) Categorize(ctx context.Context, text, merchantHint string) models.ProviderResult {
	return m.chat.Categorize(ctx, text, merchantHint)
}

// Chat delegates to the chat completions API.
func (m *MistralProvider) Chat(ctx context.Context, turns []models.ChatTurn, systemPrompt string) models.ProviderResult {
	return m.chat.Chat(ctx, turns, systemPrompt)
}

// callOCR makes HTTP request to Mistral OCR API
func (m *MistralProvider) callOCR(ctx context.Context, request mistralOCRRequest) (*mistralOCRResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/ocr", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	body, err := doRequest(m.client, ProviderMistral, req)
	if err != nil {
		return nil, err
	}

	var response mistralOCRResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return &response, nil
}

// stripMarkdown removes table pipes and emphasis so the receipt heuristics
// see plain lines.
func stripMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "|") && strings.Trim(line, "|-: ") == "" {
			continue
		}
		line = strings.NewReplacer("|", " ", "**", "", "__", "", "#", "").Replace(line)
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	return strings.Join(out, "\n")
}
