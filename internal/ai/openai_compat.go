// openai_compat.go - Client for OpenAI-compatible chat completion APIs (Together, Groq, Mistral chat)

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// Base URLs of the hosted APIs
const (
	TogetherBaseURL = "https://api.together.xyz/v1"
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	MistralBaseURL  = "https://api.mistral.ai/v1"
)

const (
	compatTemperature = 0.1
	compatMaxTokens   = 2048
	maxResponseBytes  = 4 << 20
)

// OpenAICompatProvider talks to any /chat/completions endpoint. Vision is
// available when visionModel is set.
type OpenAICompatProvider struct {
	name        string
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	client      *http.Client
	now         func() time.Time
}

// NewOpenAICompatProvider creates an adapter for baseURL.
func NewOpenAICompatProvider(name, baseURL, apiKey, model, visionModel string) (*OpenAICompatProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", name)
	}
	return &OpenAICompatProvider{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		visionModel: visionModel,
		client:      &http.Client{Timeout: 60 * time.Second},
		now:         time.Now,
	}, nil
}

// NewTogetherProvider creates the Together AI adapter.
func NewTogetherProvider(apiKey, model, visionModel string) (*OpenAICompatProvider, error) {
	return NewOpenAICompatProvider(ProviderTogether, TogetherBaseURL, apiKey, model, visionModel)
}

// NewGroqProvider creates the Groq adapter. Groq is text only.
func NewGroqProvider(apiKey, model string) (*OpenAICompatProvider, error) {
	return NewOpenAICompatProvider(ProviderGroq, GroqBaseURL, apiKey, model, "")
}

// Name returns the provider name
func (p *OpenAICompatProvider) Name() string {
	return p.name
}

type compatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type compatContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *compatImageURL `json:"image_url,omitempty"`
}

type compatImageURL struct {
	URL string `json:"url"`
}

type compatResponseFormat struct {
	Type string `json:"type"`
}

type compatRequest struct {
	Model          string                `json:"model"`
	Messages       []compatMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens"`
	ResponseFormat *compatResponseFormat `json:"response_format,omitempty"`
}

// AnalyzeImage sends the receipt as a data URL to the vision model.
func (p *OpenAICompatProvider) AnalyzeImage(ctx context.Context, img models.Image) models.ProviderResult {
	if p.visionModel == "" {
		return models.Failed(p.name, "vision is not supported")
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
	req := compatRequest{
		Model: p.visionModel,
		Messages: []compatMessage{{
			Role: "user",
			Content: []compatContentPart{
				{Type: "text", Text: ReceiptOCRPrompt},
				{Type: "image_url", ImageURL: &compatImageURL{URL: dataURL}},
			},
		}},
		Temperature: compatTemperature,
		MaxTokens:   compatMaxTokens,
	}

	reply, err := p.complete(ctx, req)
	if err != nil {
		return models.Failed(p.name, err.Error())
	}
	return resultFromReceipt(p.name, reply, p.now())
}

// Categorize asks the text model for a category.
func (p *OpenAICompatProvider) Categorize(ctx context.Context, text, merchantHint string) models.ProviderResult {
	req := compatRequest{
		Model:          p.model,
		Messages:       []compatMessage{{Role: "user", Content: CategorizePrompt(text, merchantHint)}},
		Temperature:    compatTemperature,
		MaxTokens:      256,
		ResponseFormat: &compatResponseFormat{Type: "json_object"},
	}
	reply, err := p.complete(ctx, req)
	if err != nil {
		return models.Failed(p.name, err.Error())
	}
	return resultFromCategory(p.name, reply)
}

// Chat sends the whole conversation with the system prompt first.
func (p *OpenAICompatProvider) Chat(ctx context.Context, turns []models.ChatTurn, systemPrompt string) models.ProviderResult {
	history, last, ok := lastUserTurn(turns)
	if !ok {
		return models.Failed(p.name, "conversation must end with a user turn")
	}
	messages := []compatMessage{{Role: "system", Content: chatSystem(systemPrompt)}}
	for _, t := range history {
		messages = append(messages, compatMessage{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, compatMessage{Role: "user", Content: last})

	reply, err := p.complete(ctx, compatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: compatTemperature,
		MaxTokens:   compatMaxTokens,
	})
	if err != nil {
		return models.Failed(p.name, err.Error())
	}
	return resultFromChat(p.name, reply)
}

// complete posts a chat completion request and returns the first choice.
func (p *OpenAICompatProvider) complete(ctx context.Context, request compatRequest) (string, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	body, err := doRequest(p.client, p.name, req)
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", fmt.Errorf("%s: reply has no content", p.name)
	}
	return content.String(), nil
}

// doRequest sends req and returns the body of a 2xx response.
func doRequest(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, categorizeError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, categorizeError(provider, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError(provider, resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: response is not JSON", provider)
	}
	return body, nil
}
