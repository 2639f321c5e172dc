package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENWEATHER_API_KEY", "ow-test")
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "gt-test")
	t.Setenv("GOOGLE_MAPS_API_KEY", "gm-test")
}

func clearOptional(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WEATHERAPI_API_KEY", "OPENAI_MODEL", "DEFAULT_STYLE", "HTTP_TIMEOUT",
		"HTTP_MAX_RETRIES", "WEATHER_PROVIDERS", "LOG_LEVEL", "PORT", "LANGUAGE",
		"OPENAI_BASE_URL", "GBIF_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearOptional(t)
	setCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gm-test", cfg.MapsAPIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "https://api.gbif.org", cfg.GBIFBaseURL)
	assert.Equal(t, "pokedex", cfg.DefaultStyle)
	assert.Equal(t, "ja", cfg.Language)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, uint(0), cfg.HTTPMaxRetries)
	assert.Equal(t, []string{"openweathermap", "weatherapi", "openmeteo"}, cfg.WeatherProviders)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	clearOptional(t)
	setCredentials(t)
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("DEFAULT_STYLE", "field-guide")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("HTTP_MAX_RETRIES", "2")
	t.Setenv("WEATHER_PROVIDERS", " OpenMeteo , openweathermap,openmeteo ")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "field-guide", cfg.DefaultStyle)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, uint(2), cfg.HTTPMaxRetries)
	assert.Equal(t, []string{"openmeteo", "openweathermap"}, cfg.WeatherProviders)
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing credential",
			env:     map[string]string{"GOOGLE_MAPS_API_KEY": "", "OPENAI_API_KEY": ""},
			wantErr: "OPENAI_API_KEY, GOOGLE_MAPS_API_KEY",
		},
		{
			name:    "unknown style",
			env:     map[string]string{"DEFAULT_STYLE": "haiku"},
			wantErr: "invalid DEFAULT_STYLE",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"WEATHER_PROVIDERS": "openweathermap,darksky"},
			wantErr: `unknown provider "darksky"`,
		},
		{
			name:    "empty provider list",
			env:     map[string]string{"WEATHER_PROVIDERS": " , "},
			wantErr: "no providers configured",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"HTTP_TIMEOUT": "soon"},
			wantErr: "invalid HTTP_TIMEOUT",
		},
		{
			name:    "negative retries",
			env:     map[string]string{"HTTP_MAX_RETRIES": "-1"},
			wantErr: "invalid HTTP_MAX_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOptional(t)
			setCredentials(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
