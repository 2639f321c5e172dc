package weather

import (
	"context"
	"time"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	// Fetch returns the conditions at loc. Providers that only know current
	// conditions ignore at.
	Fetch(ctx context.Context, loc Location, at time.Time) (Report, error)
}
