package domain

import (
	"math"
	"time"
)

// Snapshot status values. An error snapshot carries the failure reason and
// zeroed readings; downstream treats it as degraded input, not a run failure.
const (
	StatusLive  = "Live Data"
	StatusError = "Error"
)

// PollenCount holds the three user-facing pollen categories in grains/m³.
type PollenCount struct {
	Grass float64 `json:"grass"`
	Tree  float64 `json:"tree"`
	Weed  float64 `json:"weed"`
}

// EnvironmentalSnapshot is the reconciled view of one location's current air
// quality, assembled from whichever providers responded.
type EnvironmentalSnapshot struct {
	LocationName string      `json:"location_name"`
	Lat          float64     `json:"lat,omitempty"`
	Lon          float64     `json:"lon,omitempty"`
	AQI          float64     `json:"aqi"`
	PM25         float64     `json:"pm2_5"`
	PM10         float64     `json:"pm10"`
	Pollen       PollenCount `json:"pollen_count"`
	Status       string      `json:"status"`
	Error        string      `json:"error,omitempty"`
}

// ErrorSnapshot builds the degraded snapshot used when no usable
// environmental data could be acquired for a location.
func ErrorSnapshot(locationName, reason string) EnvironmentalSnapshot {
	return EnvironmentalSnapshot{
		LocationName: locationName,
		Status:       StatusError,
		Error:        reason,
	}
}

// PollutantReading is the keyed provider's view: a categorical 1–5 air
// quality index plus particulate concentrations.
type PollutantReading struct {
	AQIIndex int
	PM25     float64
	PM10     float64
}

// AirQualityReading is the open forecast provider's view: a native US AQI,
// particulates, and the pollen categories sampled at the current local hour.
type AirQualityReading struct {
	USAQI  float64
	PM25   float64
	PM10   float64
	Pollen PollenCount
}

// PollenSeries holds the hourly forecast series for each plant taxon. Entries
// are pointers because upstream arrays carry nulls for hours without data.
type PollenSeries struct {
	Grass   []*float64
	Alder   []*float64
	Birch   []*float64
	Mugwort []*float64
	Ragweed []*float64
}

// SampleAtHour collapses the taxon series into the three pollen categories at
// the given hour index: grass as-is, tree = alder + birch, weed = mugwort +
// ragweed. Series shorter than the index and null entries contribute zero.
func (s PollenSeries) SampleAtHour(hour int) PollenCount {
	return PollenCount{
		Grass: sampleSeries(s.Grass, hour),
		Tree:  sampleSeries(s.Alder, hour) + sampleSeries(s.Birch, hour),
		Weed:  sampleSeries(s.Mugwort, hour) + sampleSeries(s.Ragweed, hour),
	}
}

func sampleSeries(series []*float64, hour int) float64 {
	if hour < 0 || hour >= len(series) {
		return 0
	}
	v := series[hour]
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// LocalHour returns the hour of day (0–23) at a location offset from UTC by
// utcOffsetSeconds. Hourly forecast series start at local midnight, so this
// doubles as the sampling index for "now".
func LocalHour(utcOffsetSeconds int) int {
	return clock.Now().UTC().Add(time.Duration(utcOffsetSeconds) * time.Second).Hour()
}

// ConvertCategoricalAQI maps the keyed provider's 1–5 categorical index onto
// an approximate 0–500 US AQI by multiplying by 50. The buckets are not
// linear in the US scale; the converted value feeds risk prompts and
// user-facing summaries, not regulatory reporting.
func ConvertCategoricalAQI(index int) float64 {
	if index <= 0 {
		return 0
	}
	return float64(index) * 50
}

// MergeReadings reconciles the two provider readings into one snapshot.
// Either or both readings may be nil (that provider failed or was skipped);
// absent data degrades toward zero but the snapshot stays live. The keyed
// pollutant reading wins for AQI and particulates, the open reading fills
// what remains, and pollen gaps are estimated from PM10.
func MergeReadings(locationName string, geo Geo, pollutant *PollutantReading, air *AirQualityReading) EnvironmentalSnapshot {
	snapshot := EnvironmentalSnapshot{
		LocationName: locationName,
		Lat:          geo.Lat,
		Lon:          geo.Lon,
		Status:       StatusLive,
	}

	if air != nil {
		snapshot.AQI = air.USAQI
		snapshot.PM25 = air.PM25
		snapshot.PM10 = air.PM10
		snapshot.Pollen = air.Pollen
	}
	if pollutant != nil {
		snapshot.AQI = ConvertCategoricalAQI(pollutant.AQIIndex)
		if pollutant.PM25 > 0 {
			snapshot.PM25 = pollutant.PM25
		}
		if pollutant.PM10 > 0 {
			snapshot.PM10 = pollutant.PM10
		}
	}

	snapshot.AQI = clampNonNegative(snapshot.AQI)
	snapshot.PM25 = clampNonNegative(snapshot.PM25)
	snapshot.PM10 = clampNonNegative(snapshot.PM10)
	snapshot.Pollen = FillPollenGaps(snapshot.Pollen, snapshot.PM10)

	return snapshot
}

// FillPollenGaps estimates missing tree and weed pollen from particulate
// load. Pollen sensor coverage is sparse outside Europe, so a zero category
// next to elevated PM10 usually means "not measured": coarse particulates
// correlate with airborne biological material, giving a usable estimate.
// Measured (non-zero) values are never overwritten.
func FillPollenGaps(pollen PollenCount, pm10 float64) PollenCount {
	if pollen.Tree == 0 && pm10 > 30 {
		pollen.Tree = round1(pm10 * 0.15)
	}
	if pollen.Weed == 0 && pm10 > 40 {
		pollen.Weed = round1(pm10 * 0.10)
	}
	pollen.Grass = clampNonNegative(pollen.Grass)
	pollen.Tree = clampNonNegative(pollen.Tree)
	pollen.Weed = clampNonNegative(pollen.Weed)
	return pollen
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
