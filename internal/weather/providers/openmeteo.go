package providers

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/i474232898/zukan/internal/upstream"
	"github.com/i474232898/zukan/internal/weather"
)

const OpenMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs coordinates and, unlike the other providers, honours the capture
// time by reading the matching hour of the hourly series.
type OpenMeteoProvider struct {
	name string
	http *upstream.Client
}

func NewOpenMeteoProvider(client *upstream.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name: "openmeteo",
		http: client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Current *struct {
		Time          string  `json:"time"`
		Temperature2m float64 `json:"temperature_2m"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
	Hourly *struct {
		Time          []string  `json:"time"`
		Temperature2m []float64 `json:"temperature_2m"`
		WeatherCode   []int     `json:"weather_code"`
	} `json:"hourly"`
}

const openMeteoHourLayout = "2006-01-02T15:04"

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location, at time.Time) (weather.Report, error) {
	if !loc.HasCoordinates() {
		return weather.Report{}, errCoordinatesRequired
	}

	params := map[string]string{
		"latitude":  fmt.Sprintf("%f", *loc.Lat),
		"longitude": fmt.Sprintf("%f", *loc.Lon),
		"timezone":  "auto",
	}
	if at.IsZero() {
		params["current"] = "temperature_2m,weather_code"
	} else {
		day := at.Format("2006-01-02")
		params["hourly"] = "temperature_2m,weather_code"
		params["start_date"] = day
		params["end_date"] = day
	}

	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).SetResult(&openMeteoPayload{}).Get("/v1/forecast")
	})
	if err != nil {
		return weather.Report{}, err
	}

	payload, ok := resp.Result().(*openMeteoPayload)
	if !ok || payload == nil {
		return weather.Report{}, fmt.Errorf("%w: %s", errUnexpectedPayload, resp.String())
	}

	if at.IsZero() {
		if payload.Current == nil {
			return weather.Report{}, errNoConditions
		}
		ts, err := time.Parse(openMeteoHourLayout, payload.Current.Time)
		if err != nil {
			ts = time.Now()
		}
		cond := mapOpenMeteoCondition(payload.Current.WeatherCode)
		return weather.Report{
			Description:  describeCondition(cond),
			TemperatureC: payload.Current.Temperature2m,
			Condition:    cond,
			Provider:     p.name,
			ObservedAt:   ts.UTC(),
		}, nil
	}

	h := payload.Hourly
	if h == nil || len(h.Time) == 0 || len(h.Temperature2m) != len(h.Time) || len(h.WeatherCode) != len(h.Time) {
		return weather.Report{}, errNoConditions
	}

	want := time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), 0, 0, 0, at.Location()).Format(openMeteoHourLayout)
	for i, ts := range h.Time {
		if ts != want {
			continue
		}
		cond := mapOpenMeteoCondition(h.WeatherCode[i])
		observed, err := time.Parse(openMeteoHourLayout, ts)
		if err != nil {
			observed = at
		}
		return weather.Report{
			Description:  describeCondition(cond),
			TemperatureC: h.Temperature2m[i],
			Condition:    cond,
			Provider:     p.name,
			ObservedAt:   observed.UTC(),
		}, nil
	}
	return weather.Report{}, fmt.Errorf("%w: no hourly value for %s", errNoConditions, want)
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on WMO weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
