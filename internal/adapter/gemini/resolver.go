package gemini

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pollenguard/allergy-risk/internal/observability"
)

// FallbackEndpoint is the model used when the catalog cannot be listed or
// lists nothing suitable. It is a best-effort guess at a model that exists,
// so it is never cached: a later successful listing still wins.
const FallbackEndpoint = "models/gemini-2.5-flash"

// ModelLister is the slice of the client the resolver needs.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Resolver picks a concrete model endpoint once per process. The first call
// lists the catalog and caches the first flash-class model that supports
// generation; every later call returns the cached name without network I/O.
type Resolver struct {
	models  ModelLister
	metrics *observability.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	endpoint string
}

// NewResolver creates a resolver over the given model catalog.
func NewResolver(models ModelLister, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		models:  models,
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve returns the model resource name to generate against. It never
// fails: listing errors and catalogs without a suitable model both yield
// FallbackEndpoint. The mutex is held across the listing call so concurrent
// first resolves produce exactly one catalog request.
func (r *Resolver) Resolve(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoint != "" {
		return r.endpoint
	}

	models, err := r.models.ListModels(ctx)
	if err != nil {
		r.metrics.ModelCalls.WithLabelValues("list", "error").Inc()
		r.logger.Warn("model listing failed, using fallback endpoint",
			"fallback", FallbackEndpoint,
			"error", err)
		return FallbackEndpoint
	}
	r.metrics.ModelCalls.WithLabelValues("list", "success").Inc()

	for _, m := range models {
		if strings.Contains(m.Name, "flash") && m.SupportsGeneration() {
			r.endpoint = m.Name
			r.metrics.ModelEndpointResolved.Set(1)
			r.logger.Info("model endpoint resolved", "model", m.Name)
			return r.endpoint
		}
	}

	r.logger.Warn("no flash model in catalog, using fallback endpoint",
		"fallback", FallbackEndpoint,
		"listed", len(models))
	return FallbackEndpoint
}

// Invalidate drops the cached endpoint so the next Resolve lists the catalog
// again. Nothing calls this automatically; it exists for operational resets.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoint = ""
	r.metrics.ModelEndpointResolved.Set(0)
}
