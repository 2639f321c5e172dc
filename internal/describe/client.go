// Package describe generates flavor text for an animal with the OpenAI chat
// completions API.
package describe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/i474232898/zukan/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
)

var (
	ErrUnknownStyle  = errors.New("unknown description style")
	ErrEmptyResponse = errors.New("empty completion")
)

// Request describes one generation.
type Request struct {
	Subject string
	// Style is a registered style name; empty means DefaultStyle.
	Style string
	// StyleText is an optional free-form instruction appended to the prompt.
	StyleText string
	// MaxLength caps the answer in characters; 0 leaves it open.
	MaxLength int
}

type Client struct {
	http  *upstream.Client
	model string
}

// NewClient returns a Client sending requests through hc, which must point at
// an OpenAI compatible base URL.
func NewClient(hc *upstream.Client, apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	hc.SetHeader("Authorization", "Bearer "+apiKey)
	hc.SetHeader("Content-Type", "application/json")
	return &Client{http: hc, model: model}
}

type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Describe generates the description for req.
func (c *Client) Describe(ctx context.Context, req Request) (string, error) {
	style, ok := LookupStyle(req.Style)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, req.Style)
	}

	prompt, err := UserPrompt(style, req)
	if err != nil {
		return "", err
	}

	body := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: style.Directive},
			{Role: RoleUser, Content: prompt},
		},
	}

	resp, err := c.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(body).SetResult(&ChatCompletionResponse{}).Post("/chat/completions")
	})
	if err != nil {
		return "", err
	}

	completion, ok := resp.Result().(*ChatCompletionResponse)
	if !ok || completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyResponse, resp.String())
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
