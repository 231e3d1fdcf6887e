// Package geocode composes individual geocoding providers into the resolution
// strategy the pipeline consumes: an ordered fallback chain wrapped in an
// in-memory LRU cache.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pollenguard/allergy-risk/internal/domain"
)

// Chain tries each provider in order and returns the first successful
// resolution. A provider error of any kind falls through to the next one;
// only when every provider has failed does the chain report an error.
type Chain struct {
	providers []domain.Geocoder
	logger    *slog.Logger
}

// NewChain builds a fallback chain over the given providers. Order matters:
// the first provider is the preferred one.
func NewChain(logger *slog.Logger, providers ...domain.Geocoder) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// Resolve walks the provider list until one succeeds. The returned error is
// domain.ErrLocationNotFound when every provider agreed the place does not
// exist; otherwise it wraps the last provider failure.
func (c *Chain) Resolve(ctx context.Context, place string) (domain.Geo, error) {
	if len(c.providers) == 0 {
		return domain.Geo{}, errors.New("no geocoding providers configured")
	}

	var lastErr error
	allNotFound := true
	for _, p := range c.providers {
		geo, err := p.Resolve(ctx, place)
		if err == nil {
			return geo, nil
		}
		if !errors.Is(err, domain.ErrLocationNotFound) {
			allNotFound = false
		}
		c.logger.Warn("geocoder failed, trying next",
			"provider", p.Name(),
			"place", place,
			"error", err)
		lastErr = err
	}

	if allNotFound {
		return domain.Geo{}, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, place)
	}
	return domain.Geo{}, fmt.Errorf("all geocoders failed for %q: %w", place, lastErr)
}
