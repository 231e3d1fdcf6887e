package webhook

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
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_Enabled(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"configured", "https://hooks.example.com/abc", true},
		{"empty", "", false},
		{"placeholder", "https://hooks.example.com/YOUR_WEBHOOK_ID", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(tt.url, time.Second, discardLogger())
			assert.Equal(t, tt.want, n.Enabled())
		})
	}
}

func TestNotifier_Notify_PostsPayload(t *testing.T) {
	var got alertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, discardLogger())
	err := n.Notify(context.Background(), "Berlin", "high", "Stay inside today.")
	require.NoError(t, err)

	assert.Equal(t, "Berlin", got.Location)
	assert.Equal(t, "high", got.RiskLevel)
	assert.Equal(t, "Stay inside today.", got.Advice)
	assert.False(t, got.SentAt.IsZero())
}

func TestNotifier_Notify_DisabledIsNoOp(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewNotifier("", time.Second, discardLogger())
	err := n.Notify(context.Background(), "Berlin", "high", "advice")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestNotifier_Notify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, discardLogger())
	err := n.Notify(context.Background(), "Berlin", "high", "advice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifier_Notify_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed before use

	n := NewNotifier(srv.URL, time.Second, discardLogger())
	err := n.Notify(context.Background(), "Berlin", "high", "advice")
	require.Error(t, err)
}
