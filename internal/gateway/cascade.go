// cascade.go - Sequential, quota-aware walk over the providers of one capability

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/common"
	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// attemptFunc calls one provider. The provider is known to implement the
// capability being walked.
type attemptFunc func(ctx context.Context, provider string) models.ProviderResult

type cascadeOutcome struct {
	result   models.ProviderResult
	ok       bool
	canceled bool
	attempts int
	err      string
	// failures holds the failure reason of every attempted provider.
	failures map[string]string
}

func (o cascadeOutcome) status() string {
	switch {
	case o.ok:
		return "success"
	case o.canceled:
		return "canceled"
	case o.attempts == 0:
		return "skipped"
	}
	return "failed"
}

// cascade tries providers in ascending priority. Admission is checked
// right before each candidate, so a provider crossing its safe threshold
// during the walk is skipped. Every attempt is recorded in the quota
// tracker and emitted to the audit sink, whatever its result.
func (g *Gateway) cascade(ctx context.Context, rc *common.RequestContext, capability models.Capability, call attemptFunc) cascadeOutcome {
	var out cascadeOutcome
	logger := rc.Logger()

	for _, name := range g.registry.Cascade(capability) {
		if ctx.Err() != nil {
			out.canceled = true
			return out
		}
		if !g.quota.CanDispatch(ctx, name) {
			logger.Debug().Str("provider", name).Msg("skipped, safe quota reached")
			continue
		}
		if !g.limits.Allow(name) {
			logger.Debug().Str("provider", name).Msg("skipped, rate limited")
			continue
		}

		out.attempts++
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		start := time.Now()
		res := call(callCtx, name)
		latency := time.Since(start)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		res.Provider = name
		res.LatencyMs = latency.Milliseconds()
		if timedOut && !res.Success && res.Error == "" {
			res.Error = "provider timeout"
		}

		// Quota is consumed on attempt, even when the caller went away
		counter := g.quota.RecordCall(context.WithoutCancel(ctx), name, res.Success, latency)
		g.audit.Emit(context.WithoutCancel(ctx), models.AuditLogEntry{
			Timestamp:  g.now(),
			RequestID:  rc.RequestID,
			Provider:   name,
			Capability: capability,
			Success:    res.Success,
			LatencyMs:  res.LatencyMs,
			Counter:    counter,
			Limit:      g.quota.Limit(name),
		})

		if res.Success {
			out.result = res
			out.ok = true
			return out
		}
		if out.failures == nil {
			out.failures = make(map[string]string)
		}
		out.failures[name] = res.Error
		logger.Warn().
			Str("provider", name).
			Str("capability", string(capability)).
			Int64("latency_ms", res.LatencyMs).
			Str("error", res.Error).
			Msg("provider attempt failed")

		if ctx.Err() != nil {
			out.canceled = true
			return out
		}
	}
	return out
}
