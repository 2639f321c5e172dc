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

const WeatherAPIBaseURL = "https://api.weatherapi.com"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name   string
	apiKey string
	lang   string
	http   *upstream.Client
}

func NewWeatherAPIProvider(client *upstream.Client, apiKey, lang string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:   "weatherapi",
		apiKey: apiKey,
		lang:   lang,
		http:   client,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Location struct {
		LocaltimeEpoch int64 `json:"localtime_epoch"`
	} `json:"location"`
	Current struct {
		TempC     *float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location, _ time.Time) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("weatherapi api key is not configured")
	}

	params := map[string]string{"key": p.apiKey}
	if p.lang != "" {
		params["lang"] = p.lang
	}
	// WeatherAPI uses "q" for location; it accepts a place name or "lat,lon".
	if loc.HasCoordinates() {
		params["q"] = fmt.Sprintf("%f,%f", *loc.Lat, *loc.Lon)
	} else {
		params["q"] = loc.Name
	}

	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).SetResult(&weatherAPIPayload{}).Get("/v1/current.json")
	})
	if err != nil {
		return weather.Report{}, err
	}

	payload, ok := resp.Result().(*weatherAPIPayload)
	if !ok || payload == nil {
		return weather.Report{}, fmt.Errorf("%w: %s", errUnexpectedPayload, resp.String())
	}
	text := strings.TrimSpace(payload.Current.Condition.Text)
	if text == "" || payload.Current.TempC == nil {
		return weather.Report{}, errNoConditions
	}

	ts := time.Now().UTC()
	if payload.Location.LocaltimeEpoch > 0 {
		ts = time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	}

	return weather.Report{
		Description:  text,
		TemperatureC: *payload.Current.TempC,
		Condition:    mapWeatherAPICondition(text),
		Provider:     p.name,
		ObservedAt:   ts,
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case contains(text, "rain") || contains(text, "shower") || contains(text, "drizzle") || contains(text, "雨"):
		return weather.ConditionRain
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard") || contains(text, "雪"):
		return weather.ConditionSnow
	case contains(text, "thunder") || contains(text, "storm") || contains(text, "雷"):
		return weather.ConditionStorm
	case contains(text, "fog") || contains(text, "mist") || contains(text, "霧"):
		return weather.ConditionMist
	case contains(text, "cloud") || contains(text, "overcast") || contains(text, "曇"):
		return weather.ConditionCloudy
	case contains(text, "sunny") || contains(text, "clear") || contains(text, "晴"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
