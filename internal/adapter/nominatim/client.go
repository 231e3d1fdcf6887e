// Package nominatim implements the fallback geocoder against the public OSM
// Nominatim instance. It needs no credential, which is exactly why it sits
// last in the chain: slower and rate-limited, but always available. The usage
// policy requires an identifying User-Agent on every request.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pollenguard/allergy-risk/internal/adapter/resilient"
	"github.com/pollenguard/allergy-risk/internal/domain"
)

const userAgent = "pollenguard-allergy-risk/1.0"

// Client implements domain.Geocoder using the Nominatim search API.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Nominatim geocoding client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: resilient.NewBreaker("nominatim"),
		baseURL: "https://nominatim.openstreetmap.org",
		logger:  logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "nominatim" }

// Resolve converts a place name to coordinates. Nominatim serializes
// coordinates as strings; unparseable values are treated as not found.
func (c *Client) Resolve(ctx context.Context, place string) (domain.Geo, error) {
	params := url.Values{
		"q":      {place},
		"format": {"json"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Geo{}, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Geo{}, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, place)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return domain.Geo{}, fmt.Errorf("%w: %q: unparseable coordinates", domain.ErrLocationNotFound, place)
	}

	c.logger.Debug("geocoded place", "provider", c.Name(), "place", place, "lat", lat, "lon", lon)
	return domain.Geo{Lat: lat, Lon: lon}, nil
}

// Nominatim API response types.

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
