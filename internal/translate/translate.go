// Package translate wraps the Google Cloud Translation v2 REST API.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/i474232898/zukan/internal/upstream"
)

const DefaultBaseURL = "https://translation.googleapis.com"

// ErrNoTranslation is returned when the service answers without a translation.
var ErrNoTranslation = errors.New("no translation returned")

// Client translates text through Google Translate.
type Client struct {
	apiKey string
	http   *upstream.Client
}

// NewClient creates a Client on top of an upstream client pointed at DefaultBaseURL
// (or a test server).
func NewClient(http *upstream.Client, apiKey string) *Client {
	return &Client{apiKey: apiKey, http: http}
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate returns text translated from source to target language.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("google translate api key is not configured")
	}

	resp, err := c.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParam("key", c.apiKey).
			SetFormData(map[string]string{
				"q":      text,
				"source": source,
				"target": target,
				"format": "text",
			}).
			SetResult(&translateResponse{}).
			Post("/language/translate/v2")
	})
	if err != nil {
		return "", err
	}

	payload, ok := resp.Result().(*translateResponse)
	if !ok || payload == nil || len(payload.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoTranslation, resp.String())
	}

	translated := strings.TrimSpace(payload.Data.Translations[0].TranslatedText)
	if translated == "" {
		return "", ErrNoTranslation
	}
	return translated, nil
}
