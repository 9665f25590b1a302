// request_context.go - Request tracking and logging system

package common

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestContext tracks one gateway operation with timing per step.
// The request id is generated internally and never derived from the caller.
type RequestContext struct {
	RequestID        string
	Operation        string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time

	logger zerolog.Logger
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Status    string    `json:"status"` // "success", "failed", "skipped"
	Error     string    `json:"error,omitempty"`
}

// NewRequestContext creates a new request tracking context
func NewRequestContext(operation string) *RequestContext {
	return NewRequestContextWithID(uuid.New().String(), operation)
}

// NewRequestContextWithID reuses an id generated upstream (for example by the
// HTTP layer) so handler and gateway logs correlate.
func NewRequestContextWithID(requestID, operation string) *RequestContext {
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.New().String()
	}
	rc := &RequestContext{
		RequestID: requestID,
		Operation: operation,
		StartTime: time.Now(),
		Steps:     []StepLog{},
		logger: log.With().
			Str("request_id", requestID).
			Str("operation", operation).
			Logger(),
	}
	rc.logger.Debug().Msg("request started")
	return rc
}

// Logger returns the request-scoped logger.
func (rc *RequestContext) Logger() *zerolog.Logger {
	return &rc.logger
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()
	rc.logger.Debug().Str("step", stepName).Msg("step started")
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, err error) {
	if rc.CurrentStep == "" {
		return
	}
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
	}

	if err != nil {
		stepLog.Error = err.Error()
		rc.logger.Warn().Err(err).Str("step", rc.CurrentStep).Int64("duration_ms", duration).Msg("step failed")
	} else {
		rc.logger.Debug().Str("step", rc.CurrentStep).Str("status", status).Int64("duration_ms", duration).Msg("step finished")
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
}

// LogInfo logs an informational message with request ID
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	rc.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// LogWarning logs a warning message with request ID
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	rc.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// LogError logs an error message with request ID
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	rc.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// GetSummary returns a final summary of the entire request
func (rc *RequestContext) GetSummary() map[string]interface{} {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64, len(rc.Steps))
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] += step.Duration
	}

	return map[string]interface{}{
		"request_id":        rc.RequestID,
		"operation":         rc.Operation,
		"total_duration_ms": totalDuration,
		"step_breakdown":    stepBreakdown,
		"steps":             rc.Steps,
	}
}

// LogSummary logs the final request summary
func (rc *RequestContext) LogSummary(outcome string) {
	rc.logger.Info().
		Str("outcome", outcome).
		Int("steps", len(rc.Steps)).
		Int64("total_duration_ms", time.Since(rc.StartTime).Milliseconds()).
		Msg("request finished")
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx, creating a new one
// for operation when none is present.
func FromContext(ctx context.Context, operation string) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok && rc != nil {
		return rc
	}
	return NewRequestContext(operation)
}
