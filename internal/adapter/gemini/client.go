// Package gemini implements the language-model adapter against the Google
// Generative Language REST API. The service depends on two calls only:
// listing available models (to resolve a concrete endpoint once per process)
// and single-shot text generation. Responses are never streamed.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pollenguard/allergy-risk/internal/adapter/resilient"
)

// Client talks to the Generative Language API over plain HTTP.
type Client struct {
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a model API client. The timeout bounds every call,
// including generation.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: resilient.NewBreaker("gemini"),
		baseURL: "https://generativelanguage.googleapis.com",
		logger:  logger,
	}
}

// ModelInfo describes one entry from the model listing.
type ModelInfo struct {
	Name    string
	Methods []string
}

// SupportsGeneration reports whether the model accepts generateContent calls.
func (m ModelInfo) SupportsGeneration() bool {
	for _, method := range m.Methods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

// ListModels fetches the available model catalog.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models?key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	var body modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	models := make([]ModelInfo, 0, len(body.Models))
	for _, m := range body.Models {
		models = append(models, ModelInfo{
			Name:    m.Name,
			Methods: m.SupportedGenerationMethods,
		})
	}
	c.logger.Debug("listed models", "count", len(models))
	return models, nil
}

// GenerateText sends a single-turn prompt to the given model resource name
// (for example "models/gemini-2.5-flash") and returns the concatenated text
// of the first candidate. An empty candidate list is an error so callers can
// fall back instead of propagating a blank answer.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := resilient.Do(ctx, c.httpClient, c.breaker, req)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(body.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in model response")
	}

	var sb strings.Builder
	for _, p := range body.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}

	c.logger.Debug("generated text", "model", model, "chars", len(text))
	return text, nil
}

// Generative Language API request and response types.

type modelListResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
