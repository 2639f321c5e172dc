// Package zukan builds animal encyclopedia entries: it validates what the
// user typed, enriches it through the external collaborators and keeps the
// result as the pending entry until it is saved.
package zukan

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DateTimeLayout is the textual form of an entry's capture date and time.
const DateTimeLayout = "2006-01-02 15:04"

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("invalid entry input")
	// ErrLocationUnresolved is returned when a map click has no address.
	ErrLocationUnresolved = errors.New("capture location could not be resolved")
	// ErrNoPendingEntry is returned by Save when nothing has been built.
	ErrNoPendingEntry = errors.New("no pending entry to save")
)

// ValidationError lists the inputs that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Entry is one encyclopedia record. Built entries are never modified; the
// optional fields are nil when the data was not available.
type Entry struct {
	ID                 string    `json:"id"`
	SubjectName        string    `json:"subjectName"`
	ScientificName     string    `json:"scientificName"`
	CaptureLocation    string    `json:"captureLocation"`
	CaptureDateTime    string    `json:"captureDateTime"`
	WeatherDescription *string   `json:"weatherDescription,omitempty"`
	Temperature        *float64  `json:"temperature,omitempty"`
	Description        string    `json:"description"`
	Image              string    `json:"image"`
	ImageType          string    `json:"imageType"`
	Latitude           *float64  `json:"latitude,omitempty"`
	Longitude          *float64  `json:"longitude,omitempty"`
	Style              string    `json:"style"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no memory with e.
func (e Entry) Clone() Entry {
	c := e
	c.WeatherDescription = clonePtr(e.WeatherDescription)
	c.Temperature = clonePtr(e.Temperature)
	c.Latitude = clonePtr(e.Latitude)
	c.Longitude = clonePtr(e.Longitude)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Input is what the user supplies to create an entry.
type Input struct {
	SubjectName string         `json:"subjectName" validate:"required"`
	Location    LocationSource `json:"location" validate:"-"`
	CaptureDate string         `json:"captureDate" validate:"required"`
	CaptureTime string         `json:"captureTime" validate:"required"`
	Image       []byte         `json:"image" validate:"required,min=1"`

	// Style selects the description style; empty means the service default.
	Style     string `json:"style"`
	StyleText string `json:"styleText"`
	MaxLength int    `json:"maxLength" validate:"gte=0"`
}

// LocationSource is where the capture location comes from: free text typed
// by the user or a point clicked on a map.
type LocationSource interface {
	valid() bool
}

// TextLocation is a place name typed by the user.
type TextLocation string

func (t TextLocation) valid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// MapLocation is a point selected on a map.
type MapLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (m MapLocation) valid() bool {
	if math.IsNaN(m.Lat) || math.IsNaN(m.Lon) {
		return false
	}
	return m.Lat >= -90 && m.Lat <= 90 && m.Lon >= -180 && m.Lon <= 180
}
