package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// TextGenerator is the model client surface the analysis and advice stages
// consume.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// EndpointResolver supplies the model resource name to generate against.
type EndpointResolver interface {
	Resolve(ctx context.Context) string
}

// ModelAnalyzer implements Analyzer over the resolved model endpoint. Every
// model problem — timeout, transport failure, unparseable output — degrades
// to the conservative fallback verdict; the stage itself never fails.
type ModelAnalyzer struct {
	model    TextGenerator
	resolver EndpointResolver
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewModelAnalyzer creates the risk analysis stage. timeout bounds each
// generation call.
func NewModelAnalyzer(model TextGenerator, resolver EndpointResolver, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *ModelAnalyzer {
	return &ModelAnalyzer{
		model:    model,
		resolver: resolver,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Analyze produces a risk verdict for the snapshot. An error snapshot
// short-circuits to an unknown-risk verdict without touching the model.
func (a *ModelAnalyzer) Analyze(ctx context.Context, snapshot domain.EnvironmentalSnapshot, allergies []string) (domain.RiskVerdict, error) {
	if snapshot.Status == domain.StatusError {
		a.logger.Warn("snapshot carries no data, skipping model analysis",
			"location", snapshot.LocationName,
			"reason", snapshot.Error)
		return domain.DegradedVerdict(snapshot.Error), nil
	}

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.model.GenerateText(genCtx, a.resolver.Resolve(genCtx), domain.AnalysisPrompt(snapshot, allergies))
	if err != nil {
		a.metrics.ModelCalls.WithLabelValues("generate", "error").Inc()
		a.logger.Warn("model analysis failed, using fallback verdict",
			"location", snapshot.LocationName,
			"error", err)
		return domain.FallbackVerdict(), nil
	}
	a.metrics.ModelCalls.WithLabelValues("generate", "success").Inc()

	verdict, err := domain.ParseVerdict(raw)
	if err != nil {
		a.logger.Warn("model verdict unparseable, using fallback verdict",
			"location", snapshot.LocationName,
			"error", err)
		return domain.FallbackVerdict(), nil
	}

	a.logger.Debug("risk analyzed",
		"location", snapshot.LocationName,
		"risk_level", verdict.RiskLevel,
		"safe_duration", verdict.SafeDuration)
	return verdict, nil
}
