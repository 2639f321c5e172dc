// Package geocode wraps the Google Maps Geocoding API through kelvins/geocoder.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
)

var (
	// ErrNoResults is returned when Google has no address or coordinates for the query.
	ErrNoResults = errors.New("no geocoding results")
	// ErrMalformedReply is returned when the geocoder library could not read Google's answer.
	ErrMalformedReply = errors.New("malformed geocoding reply")
)

// zeroResults is the message kelvins/geocoder uses for a ZERO_RESULTS status.
const zeroResults = "No results found."

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type (
	reverseFunc func(loc geocoder.Location, language string) ([]geocoder.Address, error)
	forwardFunc func(geocoder.Address) (geocoder.Location, error)
)

// Client resolves map clicks to addresses and place names to coordinates.
// Each direction has its own breaker: forward lookups are best effort and
// must not take map clicks down with them.
type Client struct {
	reverse  reverseFunc
	forward  forwardFunc
	language string

	reverseCircuit *gobreaker.CircuitBreaker
	forwardCircuit *gobreaker.CircuitBreaker
}

// NewClient configures the geocoder library with apiKey. The library keeps the
// key in a package variable, so one key is used per process. Addresses are
// returned in language (e.g. "ja"); empty leaves the choice to Google.
func NewClient(apiKey, language string) *Client {
	geocoder.ApiKey = apiKey
	return newClient(geocoder.GeocodingReverseIntl, geocoder.Geocoding, language)
}

func newClient(reverse reverseFunc, forward forwardFunc, language string) *Client {
	return &Client{
		reverse:        reverse,
		forward:        forward,
		language:       language,
		reverseCircuit: newBreaker("geocoding-reverse"),
		forwardCircuit: newBreaker("geocoding-forward"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// A place Google cannot find is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || isNoResults(err)
		},
	})
}

func isNoResults(err error) bool {
	return errors.Is(err, ErrNoResults) || err.Error() == zeroResults
}

// Reverse returns the formatted address of the first result for lat/lon.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	result, err := c.execute(ctx, c.reverseCircuit, func() (interface{}, error) {
		return c.reverse(geocoder.Location{Latitude: lat, Longitude: lon}, c.language)
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocoding %f,%f: %w", lat, lon, normalize(err))
	}

	addresses, _ := result.([]geocoder.Address)
	for _, a := range addresses {
		if formatted := strings.TrimSpace(a.FormattedAddress); formatted != "" {
			return formatted, nil
		}
	}
	return "", fmt.Errorf("reverse geocoding %f,%f: %w", lat, lon, ErrNoResults)
}

// Forward returns the coordinates of a free-text place.
func (c *Client) Forward(ctx context.Context, place string) (Point, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Point{}, ErrNoResults
	}

	result, err := c.execute(ctx, c.forwardCircuit, func() (interface{}, error) {
		return c.forward(geocoder.Address{City: place})
	})
	if err != nil {
		return Point{}, fmt.Errorf("geocoding %q: %w", place, normalize(err))
	}

	loc, _ := result.(geocoder.Location)
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return Point{}, fmt.Errorf("geocoding %q: %w", place, ErrNoResults)
	}
	return Point{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}

func normalize(err error) error {
	if !errors.Is(err, ErrNoResults) && isNoResults(err) {
		return ErrNoResults
	}
	return err
}

type outcome struct {
	value interface{}
	err   error
}

// execute runs call through circuit. The geocoder library takes no context,
// so the call is abandoned (not cancelled) when ctx ends first. The library
// indexes into Google's reply without checking it; a panic there becomes
// ErrMalformedReply and counts as a breaker failure.
func (c *Client) execute(ctx context.Context, circuit *gobreaker.CircuitBreaker, call func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := circuit.Execute(func() (v interface{}, err error) {
			defer func() {
				if r := recover(); r != nil {
					v, err = nil, fmt.Errorf("%w: %v", ErrMalformedReply, r)
				}
			}()
			return call()
		})
		done <- outcome{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.value, o.err
	}
}
