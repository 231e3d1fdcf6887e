package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// PollutantProvider is the keyed provider's current pollutant lookup.
type PollutantProvider interface {
	CurrentAirPollution(ctx context.Context, geo domain.Geo) (domain.PollutantReading, error)
}

// AirQualityProvider is the open provider's combined air-quality and
// pollen-forecast lookup.
type AirQualityProvider interface {
	CurrentAirQuality(ctx context.Context, geo domain.Geo) (domain.AirQualityReading, error)
}

// EnviroFetcher implements Fetcher: geocode the place, query both
// environmental providers concurrently, and reconcile whatever came back.
// Only a failed geocode yields an error snapshot; provider failures degrade
// readings toward zero without aborting.
type EnviroFetcher struct {
	geocoder  domain.Geocoder
	pollutant PollutantProvider // nil when the keyed provider is not configured
	air       AirQualityProvider
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewEnviroFetcher creates the environmental fetch stage. pollutant may be
// nil when no credential for the keyed provider is configured.
func NewEnviroFetcher(geocoder domain.Geocoder, pollutant PollutantProvider, air AirQualityProvider, logger *slog.Logger, metrics *observability.Metrics) *EnviroFetcher {
	return &EnviroFetcher{
		geocoder:  geocoder,
		pollutant: pollutant,
		air:       air,
		logger:    logger,
		metrics:   metrics,
	}
}

// Fetch acquires the environmental snapshot for a location.
func (f *EnviroFetcher) Fetch(ctx context.Context, location string) (domain.EnvironmentalSnapshot, error) {
	start := time.Now()
	geo, err := f.geocoder.Resolve(ctx, location)
	f.observeProvider("geocode", start, err)
	if err != nil {
		f.logger.Warn("geocoding failed", "location", location, "error", err)
		if errors.Is(err, domain.ErrLocationNotFound) {
			return domain.ErrorSnapshot(location, fmt.Sprintf("Could not find coordinates for %s", location)), nil
		}
		return domain.ErrorSnapshot(location, fmt.Sprintf("Geocoding failed for %s: %v", location, err)), nil
	}

	var (
		wg        sync.WaitGroup
		pollutant *domain.PollutantReading
		air       *domain.AirQualityReading
	)

	if f.pollutant != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			reading, err := f.pollutant.CurrentAirPollution(ctx, geo)
			f.observeProvider("openweather", start, err)
			if err != nil {
				f.logger.Warn("pollutant provider failed", "location", location, "error", err)
				return
			}
			pollutant = &reading
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		reading, err := f.air.CurrentAirQuality(ctx, geo)
		f.observeProvider("openmeteo", start, err)
		if err != nil {
			f.logger.Warn("air quality provider failed", "location", location, "error", err)
			return
		}
		air = &reading
	}()

	wg.Wait()

	snapshot := domain.MergeReadings(location, geo, pollutant, air)
	f.logger.Debug("environmental snapshot assembled",
		"location", location,
		"aqi", snapshot.AQI,
		"pm2_5", snapshot.PM25,
		"keyed_provider", pollutant != nil,
		"open_provider", air != nil)
	return snapshot, nil
}

func (f *EnviroFetcher) observeProvider(provider string, start time.Time, err error) {
	f.metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.ProviderRequests.WithLabelValues(provider, outcome).Inc()
}
