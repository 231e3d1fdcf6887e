package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollenguard/allergy-risk/internal/adapter/resilient"
)

const testAPIKey = "test-key"

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		breaker:    resilient.NewBreaker("test"),
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ListModels_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("key"))

		w.Write([]byte(`{"models":[
			{"name":"models/gemini-2.5-pro","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent"]},
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)

	require.Len(t, models, 3)
	assert.Equal(t, "models/gemini-2.5-pro", models[0].Name)
	assert.True(t, models[0].SupportsGeneration())
	assert.True(t, models[1].SupportsGeneration())
	assert.False(t, models[2].SupportsGeneration())
}

func TestClient_ListModels_MissingKey(t *testing.T) {
	c := testClient("http://unused.invalid")
	c.apiKey = ""

	_, err := c.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestClient_ListModels_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_GenerateText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		assert.Equal(t, "say hi", req.Contents[0].Parts[0].Text)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there."}]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	text, err := c.GenerateText(context.Background(), "models/gemini-2.5-flash", "say hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)
}

func TestClient_GenerateText_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GenerateText(context.Background(), "models/gemini-2.5-flash", "say hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestClient_GenerateText_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GenerateText(context.Background(), "models/gemini-2.5-flash", "say hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty model response")
}

func TestClient_GenerateText_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := testClient(srv.URL)
	_, err := c.GenerateText(ctx, "models/gemini-2.5-flash", "say hi")
	require.Error(t, err)
}
