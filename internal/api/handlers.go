// handlers.go - HTTP handlers wrapping the gateway operations

package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/expense_ai_gateway/internal/gateway"
	"github.com/bosocmputer/expense_ai_gateway/internal/models"
	"github.com/bosocmputer/expense_ai_gateway/internal/quota"
	"github.com/bosocmputer/expense_ai_gateway/internal/storage"
)

// DefaultMaxUploadBytes caps receipt images.
const DefaultMaxUploadBytes = 10 << 20

// usageCacheTTL keeps polling dashboards off the quota store.
const usageCacheTTL = 2 * time.Second

// AuditReader lists stored audit entries.
type AuditReader interface {
	Recent(ctx context.Context, provider string, limit int64) ([]models.AuditLogEntry, error)
}

// Handler serves the HTTP API.
type Handler struct {
	gateway   *gateway.Gateway
	audit     AuditReader
	usage     *storage.TTLCache[map[string]quota.UsageStats]
	maxUpload int64
}

// NewHandler creates a handler. audit may be nil when no store is configured.
func NewHandler(g *gateway.Gateway, audit AuditReader, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		gateway:   g,
		audit:     audit,
		usage:     storage.NewTTLCache(usageCacheTTL, g.GetUsageStats),
		maxUpload: maxUpload,
	}
}

// ReceiptRequest is the JSON form of an analyze-receipt call.
type ReceiptRequest struct {
	ImageBase64 string `json:"image_base64"`
	MIMEType    string `json:"mime_type"`
}

// CategorizeRequest is the body of a categorize call.
type CategorizeRequest struct {
	Description  string `json:"description"`
	MerchantHint string `json:"merchant_hint"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	Messages     []models.ChatTurn `json:"messages"`
	SystemPrompt string            `json:"system_prompt"`
}

// CommandRequest is the body of a parse-command call.
type CommandRequest struct {
	Text string `json:"text"`
}

// statusFor maps an outcome to the response status.
func statusFor(o gateway.Outcome) int {
	if errors.Is(o.Err(), gateway.ErrPolicyViolation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// AnalyzeReceipt handles POST /api/v1/analyze-receipt. It accepts a
// multipart "file" field or a JSON body with a base64 image.
func (h *Handler) AnalyzeReceipt(c *gin.Context) {
	data, mimeType, status, err := h.readImage(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result := h.gateway.AnalyzeReceipt(c.Request.Context(), data, mimeType)
	c.JSON(statusFor(result.Outcome), result)
}

func (h *Handler) readImage(c *gin.Context) ([]byte, string, int, error) {
	// base64 adds a third on top of the raw size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload*4/3+4096)

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.readMultipart(c)
	}

	var req ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", bodyErrorStatus(err), fmt.Errorf("expected multipart field \"file\" or JSON with image_base64: %w", err)
	}
	encoded := req.ImageBase64
	mimeType := req.MIMEType
	// Accept data URLs as sent by browsers
	if strings.HasPrefix(encoded, "data:") {
		if comma := strings.IndexByte(encoded, ','); comma > 0 {
			if mimeType == "" {
				mimeType = strings.TrimSuffix(strings.TrimPrefix(encoded[:comma], "data:"), ";base64")
			}
			encoded = encoded[comma+1:]
		}
	}
	if encoded == "" {
		return nil, "", http.StatusBadRequest, errors.New("image_base64 is required")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("image_base64 is not valid base64: %w", err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, "", http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", h.maxUpload)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, http.StatusOK, nil
}

func (h *Handler) readMultipart(c *gin.Context) ([]byte, string, int, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, "", bodyErrorStatus(err), fmt.Errorf("multipart field \"file\" is required: %w", err)
	}
	if header.Size > h.maxUpload {
		return nil, "", http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", h.maxUpload)
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, "", http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", h.maxUpload)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, http.StatusOK, nil
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// Categorize handles POST /api/v1/categorize.
func (h *Handler) Categorize(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		badRequest(c, "description is required", nil)
		return
	}

	result := h.gateway.CategorizeExpense(c.Request.Context(), req.Description, req.MerchantHint)
	c.JSON(statusFor(result.Outcome), result)
}

// Chat handles POST /api/v1/chat.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if len(req.Messages) == 0 {
		badRequest(c, "messages cannot be empty", nil)
		return
	}
	for i, m := range req.Messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		default:
			badRequest(c, fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role), nil)
			return
		}
	}

	result := h.gateway.Chat(c.Request.Context(), req.Messages, req.SystemPrompt)
	c.JSON(statusFor(result.Outcome), result)
}

// ParseCommand handles POST /api/v1/parse-command. It answers 204 when
// nothing usable could be read from the text.
func (h *Handler) ParseCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	cmd := h.gateway.ParseExpenseCommand(c.Request.Context(), req.Text)
	if cmd == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

// Usage handles GET /api/v1/usage. refresh=true bypasses the cache.
func (h *Handler) Usage(c *gin.Context) {
	if c.Query("refresh") == "true" {
		h.usage.Invalidate()
	}
	c.JSON(http.StatusOK, gin.H{
		"providers": h.usage.Get(context.WithoutCancel(c.Request.Context())),
		"enabled":   h.gateway.Providers(),
	})
}

// Audit handles GET /api/v1/audit?provider=&limit=.
func (h *Handler) Audit(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit store is not configured"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil {
		badRequest(c, "limit must be an integer", err)
		return
	}

	entries, err := h.audit.Recent(c.Request.Context(), c.Query("provider"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "expense-ai-gateway",
		"providers": h.gateway.Providers(),
	})
}
