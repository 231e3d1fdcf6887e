package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// Notifier delivers a best-effort alert once advice exists.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, location, riskLevel, advice string) error
}

// AdviceGenerator implements Generator: ask the model for a short advisory,
// fall back to a canned message on any failure, then hand the alert to the
// notifier in the background without waiting for it.
type AdviceGenerator struct {
	model    TextGenerator
	resolver EndpointResolver
	notifier Notifier // nil disables notification entirely
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAdviceGenerator creates the advice stage. notifier may be nil.
func NewAdviceGenerator(model TextGenerator, resolver EndpointResolver, notifier Notifier, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AdviceGenerator {
	return &AdviceGenerator{
		model:    model,
		resolver: resolver,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Generate produces the advisory message for a verdict. The returned string
// is never empty: model failures substitute the fixed fallback message.
func (g *AdviceGenerator) Generate(ctx context.Context, location string, verdict domain.RiskVerdict) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	advice, err := g.model.GenerateText(genCtx, g.resolver.Resolve(genCtx), domain.AdvicePrompt(location, verdict))
	if err != nil {
		g.metrics.ModelCalls.WithLabelValues("generate", "error").Inc()
		g.logger.Warn("advice generation failed, using fallback message",
			"location", location,
			"error", err)
		advice = domain.FallbackAdvice
	} else {
		g.metrics.ModelCalls.WithLabelValues("generate", "success").Inc()
	}

	g.notify(ctx, location, verdict.RiskLevel, advice)
	return advice, nil
}

// notify fires the webhook in the background. Outcomes are counted and
// logged but never affect the run.
func (g *AdviceGenerator) notify(ctx context.Context, location, riskLevel, advice string) {
	if g.notifier == nil {
		return
	}
	if !g.notifier.Enabled() {
		g.metrics.Notifications.WithLabelValues("webhook", "skipped").Inc()
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := g.notifier.Notify(bg, location, riskLevel, advice); err != nil {
			g.metrics.Notifications.WithLabelValues("webhook", "failed").Inc()
			g.logger.Warn("webhook notification failed", "location", location, "error", err)
			return
		}
		g.metrics.Notifications.WithLabelValues("webhook", "sent").Inc()
	}()
}
