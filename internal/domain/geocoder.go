package domain

import (
	"context"
	"errors"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ErrLocationNotFound reports that no geocoding provider could resolve a
// place name. Callers degrade to an error snapshot rather than failing the run.
var ErrLocationNotFound = errors.New("location not found")

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Resolve converts a place name ("Berlin", "Austin, TX") to coordinates.
	Resolve(ctx context.Context, place string) (Geo, error)
}
