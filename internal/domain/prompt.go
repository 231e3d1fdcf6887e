package domain

import (
	"fmt"
	"strings"
)

// AnalysisPrompt renders the immunologist prompt for the risk analyzer. The
// model is instructed to answer with bare JSON matching RiskVerdict; actual
// replies still arrive fenced often enough that ParseVerdict cleans them.
func AnalysisPrompt(snapshot EnvironmentalSnapshot, allergies []string) string {
	var b strings.Builder
	b.WriteString("Act as an expert immunologist.\n\n")
	fmt.Fprintf(&b, "Live sensor data for %s:\n", snapshot.LocationName)
	fmt.Fprintf(&b, "- US AQI: %.0f (above 100 is unhealthy)\n", snapshot.AQI)
	fmt.Fprintf(&b, "- PM2.5 concentration: %.1f ug/m3\n", snapshot.PM25)
	fmt.Fprintf(&b, "- PM10 concentration: %.1f ug/m3\n", snapshot.PM10)
	fmt.Fprintf(&b, "- Pollen (grains/m3): grass %.1f, tree %.1f, weed %.1f\n", snapshot.Pollen.Grass, snapshot.Pollen.Tree, snapshot.Pollen.Weed)
	fmt.Fprintf(&b, "\nPatient allergies: %s\n\n", strings.Join(allergies, ", "))
	b.WriteString("Determine the outdoor risk level, the maximum safe outdoor duration in minutes, and a short reasoning sentence.\n")
	b.WriteString("Return ONLY valid JSON:\n")
	b.WriteString(`{"risk_level": "low|moderate|high|severe", "safe_duration": <minutes>, "reasoning": "<short explanation>"}`)
	return b.String()
}

// AdvicePrompt renders the advisory prompt from a finished verdict. The reply
// is used verbatim as the user-facing message, so the prompt asks for a
// short SMS-style alert.
func AdvicePrompt(location string, verdict RiskVerdict) string {
	var b strings.Builder
	b.WriteString("You are a friendly health assistant.\n")
	fmt.Fprintf(&b, "The user is in %s.\n", location)
	fmt.Fprintf(&b, "Risk level: %s. Safe outdoor time: %d minutes.\n", verdict.RiskLevel, verdict.SafeDuration)
	fmt.Fprintf(&b, "Reason: %s\n\n", verdict.Reasoning)
	b.WriteString("Write a short SMS-style alert (max 2 sentences) telling them whether to go out and what protection to wear.")
	return b.String()
}

// FallbackAdvice is the generic message substituted when advisory generation
// fails. Kept deliberately cautious since no model judgment backs it.
const FallbackAdvice = "Unable to generate personalized advice right now. Check local air quality guidance and proceed with caution."
