// Package openmeteo calls the Open-Meteo air quality API. The API is free and
// unauthenticated, which makes it the always-available half of environmental
// fetching: it supplies a native US AQI plus the hourly pollen forecast series
// the keyed provider lacks.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pollenguard/allergy-risk/internal/adapter/resilient"
	"github.com/pollenguard/allergy-risk/internal/domain"
)

const (
	currentFields = "us_aqi,pm2_5,pm10"
	hourlyFields  = "grass_pollen,alder_pollen,birch_pollen,mugwort_pollen,ragweed_pollen"
)

// Client fetches current air quality and pollen forecasts from Open-Meteo.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo air quality client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: resilient.NewBreaker("openmeteo"),
		baseURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
		logger:  logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "openmeteo" }

// CurrentAirQuality fetches the reading at the given coordinates. Pollen is
// sampled from the hourly forecast at the location's current local hour;
// timezone=auto makes the series start at local midnight, and the response's
// UTC offset pins down which index "now" is.
func (c *Client) CurrentAirQuality(ctx context.Context, geo domain.Geo) (domain.AirQualityReading, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", geo.Lat)},
		"longitude": {fmt.Sprintf("%.4f", geo.Lon)},
		"current":   {currentFields},
		"hourly":    {hourlyFields},
		"timezone":  {"auto"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.AirQualityReading{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return domain.AirQualityReading{}, fmt.Errorf("air quality request: %w", err)
	}
	defer resp.Body.Close()

	var payload airQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.AirQualityReading{}, fmt.Errorf("decode response: %w", err)
	}

	series := domain.PollenSeries{
		Grass:   payload.Hourly.GrassPollen,
		Alder:   payload.Hourly.AlderPollen,
		Birch:   payload.Hourly.BirchPollen,
		Mugwort: payload.Hourly.MugwortPollen,
		Ragweed: payload.Hourly.RagweedPollen,
	}
	hour := domain.LocalHour(payload.UTCOffsetSeconds)

	reading := domain.AirQualityReading{
		USAQI:  valueOrZero(payload.Current.USAQI),
		PM25:   valueOrZero(payload.Current.PM25),
		PM10:   valueOrZero(payload.Current.PM10),
		Pollen: series.SampleAtHour(hour),
	}
	c.logger.Debug("fetched air quality", "provider", c.Name(), "us_aqi", reading.USAQI, "pollen_hour", hour)
	return reading, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Open-Meteo API response types. Readings are pointers because the API
// reports null for stations and hours without data.

type airQualityResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		USAQI *float64 `json:"us_aqi"`
		PM25  *float64 `json:"pm2_5"`
		PM10  *float64 `json:"pm10"`
	} `json:"current"`
	Hourly struct {
		GrassPollen   []*float64 `json:"grass_pollen"`
		AlderPollen   []*float64 `json:"alder_pollen"`
		BirchPollen   []*float64 `json:"birch_pollen"`
		MugwortPollen []*float64 `json:"mugwort_pollen"`
		RagweedPollen []*float64 `json:"ragweed_pollen"`
	} `json:"hourly"`
}
