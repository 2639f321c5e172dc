package zukan

import (
	"context"
	"time"

	"github.com/i474232898/zukan/internal/describe"
	"github.com/i474232898/zukan/internal/geocode"
	"github.com/i474232898/zukan/internal/weather"
)

//go:generate mockgen -source=collaborators.go -destination=mocks/mock_collaborators.go -package=mocks

// Describer generates the flavor text of an entry.
type Describer interface {
	Describe(ctx context.Context, req describe.Request) (string, error)
}

// SpeciesResolver maps a vernacular name to a scientific name.
type SpeciesResolver interface {
	ScientificName(ctx context.Context, name string) (string, error)
}

// WeatherLookup reports the weather at a place and time.
type WeatherLookup interface {
	Current(ctx context.Context, loc weather.Location, at time.Time) (weather.Report, error)
}

// Geocoder converts between map points and addresses.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
	Forward(ctx context.Context, place string) (geocode.Point, error)
}

// Store keeps saved entries in insertion order.
type Store interface {
	Append(e Entry)
	List() []Entry
	Get(id string) (Entry, error)
	Len() int
}
