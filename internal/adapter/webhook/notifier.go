// Package webhook posts assessment summaries to an operator-configured HTTP
// endpoint. Delivery is strictly best-effort: the pipeline fires it in the
// background and never waits for, retries, or fails on the outcome.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pollenguard/allergy-risk/internal/domain"
)

// placeholderMarker is the copy-paste placeholder from setup instructions; a
// URL still carrying it was never configured and must not be called.
const placeholderMarker = "YOUR_WEBHOOK"

// Notifier delivers alert summaries to a single webhook URL.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a webhook notifier. An empty or placeholder URL
// produces a disabled notifier whose Notify is a no-op.
func NewNotifier(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Enabled reports whether a real webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != "" && !strings.Contains(n.url, placeholderMarker)
}

type alertPayload struct {
	Location  string    `json:"location"`
	RiskLevel string    `json:"risk_level"`
	Advice    string    `json:"advice"`
	SentAt    time.Time `json:"sent_at"`
}

// Notify posts one alert summary. Callers treat the returned error as
// diagnostic only; nothing downstream depends on delivery.
func (n *Notifier) Notify(ctx context.Context, location, riskLevel, advice string) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(alertPayload{
		Location:  location,
		RiskLevel: riskLevel,
		Advice:    advice,
		SentAt:    domain.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("webhook delivered", "location", location, "risk_level", riskLevel)
	return nil
}
