package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
	"github.com/pollenguard/allergy-risk/internal/pipeline"
)

// --- provider mocks ---

type fakeGeocoder struct {
	geo   domain.Geo
	err   error
	calls int
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Resolve(_ context.Context, _ string) (domain.Geo, error) {
	f.calls++
	return f.geo, f.err
}

type fakePollutant struct {
	reading domain.PollutantReading
	err     error
	calls   int
}

func (f *fakePollutant) CurrentAirPollution(_ context.Context, _ domain.Geo) (domain.PollutantReading, error) {
	f.calls++
	return f.reading, f.err
}

type fakeAir struct {
	reading domain.AirQualityReading
	err     error
	calls   int
}

func (f *fakeAir) CurrentAirQuality(_ context.Context, _ domain.Geo) (domain.AirQualityReading, error) {
	f.calls++
	return f.reading, f.err
}

func newFetcher(geocoder domain.Geocoder, pollutant pipeline.PollutantProvider, air pipeline.AirQualityProvider) *pipeline.EnviroFetcher {
	return pipeline.NewEnviroFetcher(geocoder, pollutant, air, slog.Default(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestEnviroFetcher_Fetch_BothProviders(t *testing.T) {
	geocoder := &fakeGeocoder{geo: domain.Geo{Lat: 52.52, Lon: 13.4}}
	pollutant := &fakePollutant{reading: domain.PollutantReading{AQIIndex: 3, PM25: 22.0, PM10: 35.0}}
	air := &fakeAir{reading: domain.AirQualityReading{
		USAQI:  80,
		PM25:   20.0,
		PM10:   33.0,
		Pollen: domain.PollenCount{Grass: 4.0, Tree: 2.0, Weed: 1.0},
	}}

	f := newFetcher(geocoder, pollutant, air)
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLive, snapshot.Status)
	assert.Equal(t, "Berlin", snapshot.LocationName)
	assert.Equal(t, 52.52, snapshot.Lat)
	assert.Equal(t, 150.0, snapshot.AQI, "keyed categorical index wins: 3 x 50")
	assert.Equal(t, 22.0, snapshot.PM25)
	assert.Equal(t, 4.0, snapshot.Pollen.Grass)
	assert.Equal(t, 1, pollutant.calls)
	assert.Equal(t, 1, air.calls)
}

func TestEnviroFetcher_Fetch_UnknownPlace(t *testing.T) {
	geocoder := &fakeGeocoder{err: domain.ErrLocationNotFound}
	pollutant := &fakePollutant{}
	air := &fakeAir{}

	f := newFetcher(geocoder, pollutant, air)
	snapshot, err := f.Fetch(context.Background(), "Nowhereville")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Contains(t, snapshot.Error, "Could not find coordinates for Nowhereville")
	assert.Equal(t, 0, pollutant.calls, "no provider calls after a failed geocode")
	assert.Equal(t, 0, air.calls)
}

func TestEnviroFetcher_Fetch_GeocodeOutage(t *testing.T) {
	geocoder := &fakeGeocoder{err: errors.New("all geocoders failed")}

	f := newFetcher(geocoder, &fakePollutant{}, &fakeAir{})
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Contains(t, snapshot.Error, "Geocoding failed for Berlin")
}

func TestEnviroFetcher_Fetch_NoKeyedProvider(t *testing.T) {
	geocoder := &fakeGeocoder{geo: domain.Geo{Lat: 52.52, Lon: 13.4}}
	air := &fakeAir{reading: domain.AirQualityReading{USAQI: 64, PM25: 14.0, PM10: 25.0}}

	f := newFetcher(geocoder, nil, air)
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLive, snapshot.Status)
	assert.Equal(t, 64.0, snapshot.AQI)
}

func TestEnviroFetcher_Fetch_OneProviderDown(t *testing.T) {
	geocoder := &fakeGeocoder{geo: domain.Geo{Lat: 52.52, Lon: 13.4}}
	pollutant := &fakePollutant{err: errors.New("401 unauthorized")}
	air := &fakeAir{reading: domain.AirQualityReading{USAQI: 64, PM25: 14.0, PM10: 25.0}}

	f := newFetcher(geocoder, pollutant, air)
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLive, snapshot.Status, "provider failure must not abort the fetch")
	assert.Equal(t, 64.0, snapshot.AQI)
}

func TestEnviroFetcher_Fetch_AllProvidersDown(t *testing.T) {
	geocoder := &fakeGeocoder{geo: domain.Geo{Lat: 52.52, Lon: 13.4}}
	pollutant := &fakePollutant{err: errors.New("boom")}
	air := &fakeAir{err: errors.New("boom")}

	f := newFetcher(geocoder, pollutant, air)
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLive, snapshot.Status)
	assert.Equal(t, 0.0, snapshot.AQI)
	assert.Equal(t, 0.0, snapshot.PM25)
}

func TestEnviroFetcher_Fetch_ReadingsNeverNegative(t *testing.T) {
	geocoder := &fakeGeocoder{geo: domain.Geo{Lat: 52.52, Lon: 13.4}}
	air := &fakeAir{reading: domain.AirQualityReading{
		USAQI:  -5,
		PM25:   -1,
		PM10:   -2,
		Pollen: domain.PollenCount{Grass: -3, Tree: -4, Weed: -5},
	}}

	f := newFetcher(geocoder, nil, air)
	snapshot, err := f.Fetch(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, snapshot.AQI, 0.0)
	assert.GreaterOrEqual(t, snapshot.PM25, 0.0)
	assert.GreaterOrEqual(t, snapshot.PM10, 0.0)
	assert.GreaterOrEqual(t, snapshot.Pollen.Grass, 0.0)
	assert.GreaterOrEqual(t, snapshot.Pollen.Tree, 0.0)
	assert.GreaterOrEqual(t, snapshot.Pollen.Weed, 0.0)
}
