package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/zukan/internal/describe"
	"github.com/i474232898/zukan/internal/species"
	"github.com/i474232898/zukan/internal/translate"
	"github.com/i474232898/zukan/internal/weather/providers"
)

// Weather provider names accepted in WEATHER_PROVIDERS.
const (
	ProviderOpenWeather = "openweathermap"
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenMeteo   = "openmeteo"
)

var ErrMissingCredential = errors.New("missing required credential")

type AppConfig struct {
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	TranslateAPIKey   string
	MapsAPIKey        string

	// Base URLs of the external services, overridable for proxies and tests.
	OpenAIBaseURL      string
	OpenWeatherBaseURL string
	WeatherAPIBaseURL  string
	OpenMeteoBaseURL   string
	TranslateBaseURL   string
	GBIFBaseURL        string

	// WeatherProviders lists the weather services in the order they are tried.
	WeatherProviders []string

	DefaultStyle string
	// Language is the language users type subject names in and read
	// weather descriptions in.
	Language string

	HTTPTimeout    time.Duration
	HTTPMaxRetries uint

	LogLevel string
	Port     string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.TranslateAPIKey = os.Getenv("GOOGLE_TRANSLATE_API_KEY")
	cfg.MapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	var missing []string
	for _, kv := range [][2]string{
		{"OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey},
		{"GOOGLE_TRANSLATE_API_KEY", cfg.TranslateAPIKey},
		{"GOOGLE_MAPS_API_KEY", cfg.MapsAPIKey},
	} {
		if strings.TrimSpace(kv[1]) == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}

	cfg.OpenAIModel = getenvDefault("OPENAI_MODEL", describe.DefaultModel)
	cfg.OpenAIBaseURL = getenvDefault("OPENAI_BASE_URL", describe.DefaultBaseURL)
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", providers.OpenWeatherBaseURL)
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHERAPI_BASE_URL", providers.WeatherAPIBaseURL)
	cfg.OpenMeteoBaseURL = getenvDefault("OPENMETEO_BASE_URL", providers.OpenMeteoBaseURL)
	cfg.TranslateBaseURL = getenvDefault("GOOGLE_TRANSLATE_BASE_URL", translate.DefaultBaseURL)
	cfg.GBIFBaseURL = getenvDefault("GBIF_BASE_URL", species.DefaultBaseURL)

	cfg.DefaultStyle = getenvDefault("DEFAULT_STYLE", describe.DefaultStyle)
	if _, ok := describe.LookupStyle(cfg.DefaultStyle); !ok {
		return nil, fmt.Errorf("invalid DEFAULT_STYLE %q: want one of %s",
			cfg.DefaultStyle, strings.Join(describe.StyleNames(), ", "))
	}
	cfg.Language = getenvDefault("LANGUAGE", "ja")

	provs, err := parseProviders(getenvDefault("WEATHER_PROVIDERS",
		strings.Join([]string{ProviderOpenWeather, ProviderWeatherAPI, ProviderOpenMeteo}, ",")))
	if err != nil {
		return nil, err
	}
	cfg.WeatherProviders = provs

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	retries, err := strconv.ParseUint(getenvDefault("HTTP_MAX_RETRIES", "0"), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_MAX_RETRIES: %w", err)
	}
	cfg.HTTPMaxRetries = uint(retries)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// parseProviders splits a comma separated provider list, keeping its order
// and dropping duplicates.
func parseProviders(s string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case ProviderOpenWeather, ProviderWeatherAPI, ProviderOpenMeteo:
		default:
			return nil, fmt.Errorf("invalid WEATHER_PROVIDERS: unknown provider %q", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, errors.New("invalid WEATHER_PROVIDERS: no providers configured")
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
