// Package species resolves a vernacular animal name to its scientific name
// using the GBIF species search API.
package species

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/i474232898/zukan/internal/upstream"
)

const DefaultBaseURL = "https://api.gbif.org"

// NotFound is the scientific name recorded when resolution fails.
const NotFound = "not found"

var (
	// ErrNotFound is returned when GBIF has no match for the name.
	ErrNotFound = errors.New("scientific name not found")
	// ErrTranslation wraps failures of the translation step.
	ErrTranslation = errors.New("translation failed")
)

// Translator turns text from one language into another.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Resolver looks names up in GBIF after translating them to English.
type Resolver struct {
	translator     Translator
	http           *upstream.Client
	sourceLanguage string
}

// NewResolver creates a Resolver. Names are translated from sourceLanguage
// (e.g. "ja") to English before the lookup.
func NewResolver(translator Translator, http *upstream.Client, sourceLanguage string) *Resolver {
	if sourceLanguage == "" {
		sourceLanguage = "ja"
	}
	return &Resolver{
		translator:     translator,
		http:           http,
		sourceLanguage: sourceLanguage,
	}
}

type searchResponse struct {
	Results []struct {
		Key            int64  `json:"key"`
		ScientificName string `json:"scientificName"`
		CanonicalName  string `json:"canonicalName"`
		Rank           string `json:"rank"`
	} `json:"results"`
}

// ScientificName returns the scientific name of the first GBIF match for name.
// It returns ErrNotFound when the search has no results and ErrTranslation
// when the name could not be translated.
func (r *Resolver) ScientificName(ctx context.Context, name string) (string, error) {
	english, err := r.translator.Translate(ctx, name, r.sourceLanguage, "en")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	resp, err := r.http.Do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParam("q", english).
			SetResult(&searchResponse{}).
			Get("/v1/species/search")
	})
	if err != nil {
		return "", err
	}

	payload, ok := resp.Result().(*searchResponse)
	if !ok || payload == nil {
		return "", fmt.Errorf("unexpected gbif response: %s", resp.String())
	}
	for _, result := range payload.Results {
		if name := strings.TrimSpace(result.ScientificName); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, english)
}
