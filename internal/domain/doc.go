// Package domain models environmental exposure data and allergy risk verdicts.
//
// # Data Sources
//
// Environmental readings are reconciled from two upstream providers with
// different strengths:
//
//   - The keyed pollutant provider (OpenWeatherMap Air Pollution API) reports a
//     categorical air quality index on a 1–5 scale plus PM2.5/PM10
//     concentrations in µg/m³. It is skipped entirely when no API key is
//     configured.
//   - The open forecast provider (Open-Meteo Air Quality API) reports a native
//     0–500 US AQI, particulates, and hourly pollen forecast series. It
//     requires no credential.
//
// # AQI Conventions
//
// The categorical 1–5 index is converted to an approximate US AQI by
// multiplying by 50 (2 → ~100, "moderate"). This is a deliberately coarse
// mapping: the categorical scale buckets are not linear in the US AQI scale,
// but the converted value only feeds a risk prompt and a user-facing summary,
// not regulatory reporting. When the keyed provider is unavailable the open
// provider's native US AQI is used directly.
//
// # Pollen Conventions
//
// Upstream pollen forecasts are hourly series in grains/m³, one series per
// plant taxon. The three user-facing categories sum related taxa:
//
//	grass = grass_pollen
//	tree  = alder_pollen + birch_pollen
//	weed  = mugwort_pollen + ragweed_pollen
//
// Sampling happens at the array index for the current local hour (the series
// start at local midnight when the provider is queried with timezone=auto).
// Series shorter than the index and null entries contribute zero.
//
// Pollen sensors are sparse outside Europe, so a zero tree or weed reading
// alongside high particulate load usually means "not measured" rather than
// "clean air". Two gap-fill heuristics estimate the missing categories from
// PM10, which correlates with coarse biological particles:
//
//	tree == 0 and PM10 > 30  →  tree = PM10 × 0.15
//	weed == 0 and PM10 > 40  →  weed = PM10 × 0.10
//
// Measured (non-zero) values are never overwritten.
//
// # Snapshot Status
//
// A snapshot is either usable ("Live Data") or failed ("Error", with the
// failure reason in the error field and all numeric fields zero). Downstream
// stages treat an error snapshot as degraded input, not as a run failure: the
// analyzer answers "unknown" without consulting the model, and the run still
// produces a result.
//
// # Risk Verdicts
//
// Verdicts come from a language model asked to answer in strict JSON. Model
// output is extracted tolerantly (code fences stripped, numbers accepted as
// integers or floats) and validated against the five-level scale (low,
// moderate, high, severe, unknown). Anything unparseable is replaced by the
// conservative default verdict of moderate risk and 60 safe minutes, so a
// verdict is always fully populated.
package domain
