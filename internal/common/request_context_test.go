package common

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	var buf bytes.Buffer
	initLogger(&buf, "debug", false)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestRequestContext_StepsAndSummary(t *testing.T) {
	buf := captureLogs(t)

	rc := NewRequestContext("categorize")
	_, err := uuid.Parse(rc.RequestID)
	require.NoError(t, err)

	rc.StartStep("sanitize")
	rc.EndStep("success", nil)
	rc.StartStep("provider:gemini")
	rc.EndStep("failed", errors.New("http 503"))
	rc.EndStep("ignored", nil)

	require.Len(t, rc.Steps, 2)
	assert.Equal(t, "sanitize", rc.Steps[0].Name)
	assert.Equal(t, "failed", rc.Steps[1].Status)
	assert.Equal(t, "http 503", rc.Steps[1].Error)

	summary := rc.GetSummary()
	assert.Equal(t, rc.RequestID, summary["request_id"])
	assert.Equal(t, "categorize", summary["operation"])

	rc.LogSummary("provider")
	assert.Contains(t, buf.String(), rc.RequestID)
	assert.Contains(t, buf.String(), `"outcome":"provider"`)
}

func TestRequestContext_InvalidIDIsReplaced(t *testing.T) {
	captureLogs(t)

	rc := NewRequestContextWithID("user-42", "chat")
	assert.NotEqual(t, "user-42", rc.RequestID)
	_, err := uuid.Parse(rc.RequestID)
	assert.NoError(t, err)

	id := uuid.New().String()
	assert.Equal(t, id, NewRequestContextWithID(id, "chat").RequestID)
}

func TestFromContext(t *testing.T) {
	captureLogs(t)

	rc := NewRequestContext("analyze_receipt")
	ctx := WithRequestContext(context.Background(), rc)
	assert.Same(t, rc, FromContext(ctx, "other"))

	fresh := FromContext(context.Background(), "chat")
	assert.Equal(t, "chat", fresh.Operation)
	assert.NotEqual(t, rc.RequestID, fresh.RequestID)
}

func TestInitLogger_Levels(t *testing.T) {
	buf := captureLogs(t)

	initLogger(buf, "warn", false)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", gjson.GetBytes(lines[0], "message").String())
	assert.Equal(t, "expense-ai-gateway", gjson.GetBytes(lines[0], "service").String())

	initLogger(buf, "not-a-level", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
