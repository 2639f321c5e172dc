package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/i474232898/zukan/internal/upstream"
	"github.com/i474232898/zukan/internal/weather"
)

const OpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
// It reports current conditions only.
type OpenWeatherProvider struct {
	name   string
	apiKey string
	lang   string
	http   *upstream.Client
}

func NewOpenWeatherProvider(client *upstream.Client, apiKey, lang string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:   "openweathermap",
		apiKey: apiKey,
		lang:   lang,
		http:   client,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []openWeatherCondition `json:"weather"`
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location, _ time.Time) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("openweather api key is not configured")
	}

	params := map[string]string{
		"appid": p.apiKey,
		"units": "metric",
	}
	if p.lang != "" {
		params["lang"] = p.lang
	}
	if loc.HasCoordinates() {
		params["lat"] = fmt.Sprintf("%f", *loc.Lat)
		params["lon"] = fmt.Sprintf("%f", *loc.Lon)
	} else {
		params["q"] = loc.Name
	}

	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).SetResult(&openWeatherPayload{}).Get("/data/2.5/weather")
	})
	if err != nil {
		return weather.Report{}, err
	}

	payload, ok := resp.Result().(*openWeatherPayload)
	if !ok || payload == nil {
		return weather.Report{}, fmt.Errorf("%w: %s", errUnexpectedPayload, resp.String())
	}
	if len(payload.Weather) == 0 {
		return weather.Report{}, errNoConditions
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	cond := mapOpenWeatherCondition(payload.Weather)
	desc := strings.TrimSpace(payload.Weather[0].Description)
	if desc == "" {
		desc = describeCondition(cond)
	}

	return weather.Report{
		Description:  desc,
		TemperatureC: payload.Main.Temp,
		Condition:    cond,
		Provider:     p.name,
		ObservedAt:   ts,
	}, nil
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
