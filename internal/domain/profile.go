package domain

import "time"

// DefaultSensitivity is assumed for users without a stored profile.
const DefaultSensitivity = 5

// UserProfile is the persisted per-user record consulted before a run.
type UserProfile struct {
	ID               string   `json:"id"`
	Email            string   `json:"email,omitempty"`
	Allergies        []string `json:"allergies"`
	SensitivityLevel int      `json:"sensitivity_level"`
}

// AlertEntry is one logged assessment outcome, written best-effort after a
// run completes for a known user.
type AlertEntry struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Location  string                `json:"location"`
	RiskLevel string                `json:"risk_level"`
	Snapshot  EnvironmentalSnapshot `json:"aqi_snapshot"`
	CreatedAt time.Time             `json:"created_at"`
}

// DefaultAllergies is assumed when neither the stored profile nor the request
// names any allergy.
var DefaultAllergies = []string{"General Pollution"}

// ResolveAllergies picks the effective allergy list for a run: the stored
// profile wins when it names any allergy, then the request's list, then the
// default. The returned slice is always non-empty and freshly allocated.
func ResolveAllergies(profile *UserProfile, requested []string) []string {
	if profile != nil && len(profile.Allergies) > 0 {
		return append([]string(nil), profile.Allergies...)
	}
	if len(requested) > 0 {
		return append([]string(nil), requested...)
	}
	return append([]string(nil), DefaultAllergies...)
}
