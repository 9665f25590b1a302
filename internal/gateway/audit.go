// audit.go - Audit sinks receiving one entry per dispatch attempt

package gateway

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// AuditSink receives audit entries. Emit must not fail the request; sinks
// handle and log their own errors.
type AuditSink interface {
	Emit(ctx context.Context, entry models.AuditLogEntry)
}

// LogSink writes entries to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink on the global logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.With().Str("component", "audit").Logger()}
}

// Emit logs the entry at info level.
func (s *LogSink) Emit(_ context.Context, e models.AuditLogEntry) {
	s.logger.Info().
		Time("at", e.Timestamp).
		Str("request_id", e.RequestID).
		Str("provider", e.Provider).
		Str("capability", string(e.Capability)).
		Bool("success", e.Success).
		Int64("latency_ms", e.LatencyMs).
		Int64("counter", e.Counter).
		Int64("limit", e.Limit).
		Msg("provider attempt")
}

// MultiSink fans entries out to several sinks in order.
type MultiSink []AuditSink

// Emit forwards e to every sink.
func (m MultiSink) Emit(ctx context.Context, e models.AuditLogEntry) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}
