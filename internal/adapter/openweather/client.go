// Package openweather calls the OpenWeatherMap geocoding and air pollution
// APIs. Both endpoints share one API key; when the key is absent the service
// runs without this provider entirely.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pollenguard/allergy-risk/internal/adapter/resilient"
	"github.com/pollenguard/allergy-risk/internal/domain"
)

// Client implements domain.Geocoder and the pollutant side of environmental
// fetching using the OpenWeatherMap APIs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: resilient.NewBreaker("openweather"),
		baseURL: "https://api.openweathermap.org",
		logger:  logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "openweather" }

// Resolve converts a place name to coordinates via the direct geocoding
// endpoint. An empty result set maps to domain.ErrLocationNotFound so the
// geocoder chain can distinguish "unknown place" from provider failure.
func (c *Client) Resolve(ctx context.Context, place string) (domain.Geo, error) {
	if c.apiKey == "" {
		return domain.Geo{}, errors.New("openweather api key not configured")
	}

	params := url.Values{
		"q":     {place},
		"limit": {"1"},
		"appid": {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geo/1.0/direct?"+params.Encode(), nil)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	var results []geoResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Geo{}, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Geo{}, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, place)
	}

	c.logger.Debug("geocoded place", "provider", c.Name(), "place", place, "lat", results[0].Lat, "lon", results[0].Lon)
	return domain.Geo{Lat: results[0].Lat, Lon: results[0].Lon}, nil
}

// CurrentAirPollution fetches the current categorical AQI and particulate
// concentrations at the given coordinates.
func (c *Client) CurrentAirPollution(ctx context.Context, geo domain.Geo) (domain.PollutantReading, error) {
	if c.apiKey == "" {
		return domain.PollutantReading{}, errors.New("openweather api key not configured")
	}

	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", geo.Lat)},
		"lon":   {fmt.Sprintf("%.4f", geo.Lon)},
		"appid": {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/air_pollution?"+params.Encode(), nil)
	if err != nil {
		return domain.PollutantReading{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return domain.PollutantReading{}, fmt.Errorf("air pollution request: %w", err)
	}
	defer resp.Body.Close()

	var payload pollutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PollutantReading{}, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.List) == 0 {
		return domain.PollutantReading{}, errors.New("empty air pollution response")
	}

	entry := payload.List[0]
	return domain.PollutantReading{
		AQIIndex: entry.Main.AQI,
		PM25:     entry.Components.PM25,
		PM10:     entry.Components.PM10,
	}, nil
}

// OpenWeatherMap API response types.

type geoResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type pollutionResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"` // categorical 1-5 scale
		} `json:"main"`
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
		} `json:"components"`
	} `json:"list"`
}
