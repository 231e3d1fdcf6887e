package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

const testLocation = "Austin"

func fptr(v float64) *float64 { return &v }

func TestSampleAtHour(t *testing.T) {
	series := PollenSeries{
		Grass:   []*float64{fptr(1.0), fptr(2.5), nil},
		Alder:   []*float64{fptr(3.0), fptr(4.0)},
		Birch:   []*float64{fptr(1.5), nil},
		Mugwort: []*float64{fptr(0.5)},
		Ragweed: []*float64{},
	}

	t.Run("hour zero", func(t *testing.T) {
		result := series.SampleAtHour(0)
		assert.Equal(t, 1.0, result.Grass)
		assert.Equal(t, 4.5, result.Tree) // alder + birch
		assert.Equal(t, 0.5, result.Weed) // ragweed series empty
	})

	t.Run("null entries contribute zero", func(t *testing.T) {
		result := series.SampleAtHour(1)
		assert.Equal(t, 2.5, result.Grass)
		assert.Equal(t, 4.0, result.Tree) // birch null at hour 1
		assert.Equal(t, 0.0, result.Weed) // mugwort series too short
	})

	t.Run("index past every series", func(t *testing.T) {
		result := series.SampleAtHour(23)
		assert.Equal(t, PollenCount{}, result)
	})

	t.Run("negative index", func(t *testing.T) {
		result := series.SampleAtHour(-1)
		assert.Equal(t, PollenCount{}, result)
	})

	t.Run("negative values contribute zero", func(t *testing.T) {
		s := PollenSeries{Grass: []*float64{fptr(-3.0)}}
		assert.Equal(t, 0.0, s.SampleAtHour(0).Grass)
	})
}

func TestLocalHour(t *testing.T) {
	// 20:30 UTC, so positive offsets can roll past midnight.
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 20, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	tests := []struct {
		name     string
		offset   int
		expected int
	}{
		{"UTC", 0, 20},
		{"one hour east", 3600, 21},
		{"five hours west", -5 * 3600, 15},
		{"rolls past midnight", 6 * 3600, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LocalHour(tt.offset))
		})
	}
}

func TestConvertCategoricalAQI(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		expected float64
	}{
		{"good", 1, 50},
		{"fair", 2, 100},
		{"moderate", 3, 150},
		{"poor", 4, 200},
		{"very poor", 5, 250},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConvertCategoricalAQI(tt.index))
		})
	}
}

func TestMergeReadings(t *testing.T) {
	geo := Geo{Lat: 30.27, Lon: -97.74}

	t.Run("both providers", func(t *testing.T) {
		pollutant := &PollutantReading{AQIIndex: 2, PM25: 12.5, PM10: 20.0}
		air := &AirQualityReading{USAQI: 87, PM25: 11.0, PM10: 19.0, Pollen: PollenCount{Grass: 3.0, Tree: 1.0, Weed: 0.5}}

		snapshot := MergeReadings(testLocation, geo, pollutant, air)

		assert.Equal(t, StatusLive, snapshot.Status)
		assert.Empty(t, snapshot.Error)
		assert.Equal(t, testLocation, snapshot.LocationName)
		assert.Equal(t, 30.27, snapshot.Lat)
		assert.Equal(t, 100.0, snapshot.AQI) // categorical 2 wins over native 87
		assert.Equal(t, 12.5, snapshot.PM25)
		assert.Equal(t, 20.0, snapshot.PM10)
		assert.Equal(t, PollenCount{Grass: 3.0, Tree: 1.0, Weed: 0.5}, snapshot.Pollen)
	})

	t.Run("open provider only", func(t *testing.T) {
		air := &AirQualityReading{USAQI: 42, PM25: 8.0, PM10: 15.0}

		snapshot := MergeReadings(testLocation, geo, nil, air)

		assert.Equal(t, StatusLive, snapshot.Status)
		assert.Equal(t, 42.0, snapshot.AQI)
		assert.Equal(t, 8.0, snapshot.PM25)
	})

	t.Run("keyed provider only", func(t *testing.T) {
		pollutant := &PollutantReading{AQIIndex: 4, PM25: 35.0, PM10: 55.0}

		snapshot := MergeReadings(testLocation, geo, pollutant, nil)

		assert.Equal(t, 200.0, snapshot.AQI)
		assert.Equal(t, 35.0, snapshot.PM25)
		// weed gap-filled from PM10, no pollen data at all otherwise
		assert.Equal(t, 5.5, snapshot.Pollen.Weed)
	})

	t.Run("keyed provider zero particulates keep open values", func(t *testing.T) {
		pollutant := &PollutantReading{AQIIndex: 1}
		air := &AirQualityReading{USAQI: 30, PM25: 9.0, PM10: 14.0}

		snapshot := MergeReadings(testLocation, geo, pollutant, air)

		assert.Equal(t, 50.0, snapshot.AQI)
		assert.Equal(t, 9.0, snapshot.PM25)
		assert.Equal(t, 14.0, snapshot.PM10)
	})

	t.Run("negative readings clamped", func(t *testing.T) {
		air := &AirQualityReading{USAQI: -4, PM25: -1, PM10: -2, Pollen: PollenCount{Grass: -9}}

		snapshot := MergeReadings(testLocation, geo, nil, air)

		assert.Equal(t, 0.0, snapshot.AQI)
		assert.Equal(t, 0.0, snapshot.PM25)
		assert.Equal(t, 0.0, snapshot.PM10)
		assert.Equal(t, 0.0, snapshot.Pollen.Grass)
	})

	t.Run("both providers absent stays live", func(t *testing.T) {
		snapshot := MergeReadings(testLocation, geo, nil, nil)

		assert.Equal(t, StatusLive, snapshot.Status)
		assert.Equal(t, 0.0, snapshot.AQI)
		assert.Equal(t, PollenCount{}, snapshot.Pollen)
	})
}

func TestFillPollenGaps(t *testing.T) {
	tests := []struct {
		name     string
		pollen   PollenCount
		pm10     float64
		expected PollenCount
	}{
		{"tree estimated from PM10", PollenCount{}, 40, PollenCount{Tree: 6.0}},
		{"weed estimated from PM10", PollenCount{Tree: 2.0}, 50, PollenCount{Tree: 2.0, Weed: 5.0}},
		{"both estimated", PollenCount{}, 60, PollenCount{Tree: 9.0, Weed: 6.0}},
		{"measured tree never overwritten", PollenCount{Tree: 1.2}, 100, PollenCount{Tree: 1.2, Weed: 10.0}},
		{"measured weed never overwritten", PollenCount{Weed: 0.4}, 100, PollenCount{Tree: 15.0, Weed: 0.4}},
		{"tree threshold is exclusive", PollenCount{}, 30, PollenCount{}},
		{"weed threshold is exclusive", PollenCount{}, 40, PollenCount{Tree: 6.0}},
		{"low particulates fill nothing", PollenCount{Grass: 2.0}, 10, PollenCount{Grass: 2.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FillPollenGaps(tt.pollen, tt.pm10))
		})
	}
}

func TestErrorSnapshot(t *testing.T) {
	snapshot := ErrorSnapshot(testLocation, "geocoding failed")

	assert.Equal(t, StatusError, snapshot.Status)
	assert.Equal(t, "geocoding failed", snapshot.Error)
	assert.Equal(t, testLocation, snapshot.LocationName)
	assert.Zero(t, snapshot.AQI)
	assert.Zero(t, snapshot.PM25)
	assert.Zero(t, snapshot.PM10)
	assert.Equal(t, PollenCount{}, snapshot.Pollen)
}
