package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Risk levels, ordered by severity. "unknown" is reserved for runs where no
// usable environmental data reached the analyzer.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskSevere   = "severe"
	RiskUnknown  = "unknown"
)

// FallbackReasoning is the reasoning attached to the conservative default
// verdict substituted when model analysis fails or returns garbage.
const FallbackReasoning = "standard precaution (AI Busy)"

// RiskVerdict is the analyzer's judgment of current outdoor exposure risk.
// A verdict is always fully populated: failed analysis yields the fallback,
// never absent fields.
type RiskVerdict struct {
	RiskLevel    string `json:"risk_level"`
	SafeDuration int    `json:"safe_duration"` // minutes
	Reasoning    string `json:"reasoning"`
}

// FallbackVerdict returns the conservative default used when the model call
// or verdict extraction fails.
func FallbackVerdict() RiskVerdict {
	return RiskVerdict{
		RiskLevel:    RiskModerate,
		SafeDuration: 60,
		Reasoning:    FallbackReasoning,
	}
}

// DegradedVerdict is produced without model involvement when the snapshot
// carries no usable data. The reason echoes the snapshot's acquisition error.
func DegradedVerdict(reason string) RiskVerdict {
	return RiskVerdict{
		RiskLevel:    RiskUnknown,
		SafeDuration: 0,
		Reasoning:    reason,
	}
}

// ParseVerdict extracts a RiskVerdict from raw model output. Models wrap JSON
// in markdown code fences and sometimes emit durations as floats, so the
// input is cleaned and numbers are accepted in either form before
// validation. The risk level is lowercased and must be one of the five known
// levels; the safe duration is clamped to zero when negative.
func ParseVerdict(raw string) (RiskVerdict, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return RiskVerdict{}, fmt.Errorf("parse verdict: empty model output")
	}

	var probe struct {
		RiskLevel    string      `json:"risk_level"`
		SafeDuration json.Number `json:"safe_duration"`
		Reasoning    string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return RiskVerdict{}, fmt.Errorf("parse verdict: %w", err)
	}

	level := strings.ToLower(strings.TrimSpace(probe.RiskLevel))
	switch level {
	case RiskLow, RiskModerate, RiskHigh, RiskSevere, RiskUnknown:
	default:
		return RiskVerdict{}, fmt.Errorf("parse verdict: unrecognized risk level %q", probe.RiskLevel)
	}

	minutes := 0
	if probe.SafeDuration != "" {
		f, err := probe.SafeDuration.Float64()
		if err != nil {
			return RiskVerdict{}, fmt.Errorf("parse verdict: safe_duration: %w", err)
		}
		minutes = int(f)
	}
	if minutes < 0 {
		minutes = 0
	}

	return RiskVerdict{
		RiskLevel:    level,
		SafeDuration: minutes,
		Reasoning:    strings.TrimSpace(probe.Reasoning),
	}, nil
}

// StripCodeFences removes a leading ```json or ``` fence and a trailing ```
// fence, plus surrounding whitespace. Content between fences is untouched.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
