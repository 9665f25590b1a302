package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

type fakeGemini struct {
	reply  string
	err    error
	resp   *genai.GenerateContentResponse
	last   geminiRequest
	closed bool
}

func (f *fakeGemini) generate(ctx context.Context, req geminiRequest) (*genai.GenerateContentResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.reply)}},
		}},
	}, nil
}

func (f *fakeGemini) close() error {
	f.closed = true
	return nil
}

func newTestGemini(f *fakeGemini) *GeminiProvider {
	return &GeminiProvider{
		backend: f,
		now:     func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}

func TestGemini_AnalyzeImage(t *testing.T) {
	f := &fakeGemini{reply: `{"merchant":"Colruyt","total":31.2,"date":null,"items":[],"confidence":0.9}`}
	g := newTestGemini(f)

	res := g.AnalyzeImage(context.Background(), models.Image{Data: []byte{1}, MIMEType: "image/jpeg"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Colruyt", res.OCR.Merchant)
	assert.Equal(t, "2024-06-15", res.OCR.Date)
	assert.Empty(t, res.OCR.Items)

	require.Len(t, f.last.parts, 2)
	assert.Equal(t, genai.Text(ReceiptOCRPrompt), f.last.parts[0])
	blob, ok := f.last.parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.True(t, f.last.json)
	assert.NotNil(t, f.last.schema)
}

func TestGemini_AnalyzeImageWithoutFields(t *testing.T) {
	g := newTestGemini(&fakeGemini{reply: `{"merchant":null,"total":null,"items":[]}`})
	res := g.AnalyzeImage(context.Background(), models.Image{Data: []byte{1}, MIMEType: "image/jpeg"})
	assert.False(t, res.Success)
}

func TestGemini_Categorize(t *testing.T) {
	f := &fakeGemini{reply: `{"category":"utilities","confidence":0.92,"reasoning":"energy bill"}`}
	res := newTestGemini(f).Categorize(context.Background(), "facture Engie", "")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, models.CategoryUtilities, res.Category.Category)
	assert.Equal(t, "energy bill", res.Category.Reasoning)
	assert.Equal(t, genai.Text(CategorizePrompt("facture Engie", "")), f.last.parts[0])
}

func TestGemini_ChatMapsRoles(t *testing.T) {
	f := &fakeGemini{reply: "Vous avez dépensé 120 euros."}
	turns := []models.ChatTurn{
		{Role: models.RoleUser, Content: "Bonjour"},
		{Role: models.RoleAssistant, Content: "Bonjour !"},
		{Role: models.RoleUser, Content: "Combien ce mois-ci ?"},
	}
	res := newTestGemini(f).Chat(context.Background(), turns, "Tu es concis.")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Vous avez dépensé 120 euros.", res.Message)

	assert.Equal(t, "Tu es concis.", f.last.system)
	require.Len(t, f.last.history, 2)
	assert.Equal(t, "user", f.last.history[0].Role)
	assert.Equal(t, "model", f.last.history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("Combien ce mois-ci ?")}, f.last.parts)
	assert.False(t, f.last.json)
}

func TestGemini_Failures(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeGemini
		want string
	}{
		{"api error", &fakeGemini{err: &googleapi.Error{Code: 429, Message: "quota exhausted"}}, "rate_limit"},
		{"deadline", &fakeGemini{err: context.DeadlineExceeded}, "timeout"},
		{"no candidates", &fakeGemini{resp: &genai.GenerateContentResponse{}}, "no response"},
		{"safety", &fakeGemini{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content:      &genai.Content{},
			FinishReason: genai.FinishReasonSafety,
		}}}}, "safety"},
		{"garbage", &fakeGemini{reply: "I cannot read this receipt."}, "no JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newTestGemini(tc.fake).Categorize(context.Background(), "x", "")
			assert.False(t, res.Success)
			assert.Equal(t, "gemini", res.Provider)
			assert.Contains(t, res.Error, tc.want)
		})
	}
}

func TestGemini_Close(t *testing.T) {
	f := &fakeGemini{}
	require.NoError(t, newTestGemini(f).Close())
	assert.True(t, f.closed)
}

func TestCategorizeError(t *testing.T) {
	perr := categorizeError("gemini", errors.New("dial tcp: connection refused"))
	assert.Equal(t, "network_error", perr.Category)
	assert.True(t, perr.Retryable)

	wrapped := categorizeError("groq", &ProviderError{Provider: "groq", Category: "rate_limit"})
	assert.Equal(t, "rate_limit", wrapped.Category)

	assert.Nil(t, categorizeError("groq", nil))

	apiErr := categorizeError("gemini", &googleapi.Error{Code: 503})
	assert.Equal(t, "server_error", apiErr.Category)
	assert.Equal(t, 503, apiErr.StatusCode)
}
