package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Location is the place a weather lookup is made for. Name is a free-text
// place ("Tokyo", a formatted address); Lat/Lon are set when coordinates are
// known. At least one of the two must be present.
type Location struct {
	Name string   `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Key returns a printable identifier for logs.
func (l Location) Key() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%s@%.4f,%.4f", l.Name, *l.Lat, *l.Lon)
	}
	return l.Name
}

// Report is the outcome of a successful weather lookup.
type Report struct {
	Description  string    `json:"description"`
	TemperatureC float64   `json:"temperatureC"`
	Condition    Condition `json:"condition"`
	Provider     string    `json:"provider"`
	ObservedAt   time.Time `json:"observedAt"`
}
