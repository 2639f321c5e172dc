// Package upstream holds the outbound HTTP plumbing shared by every external
// collaborator: a resty client, a circuit breaker per service and optional
// retries with exponential backoff.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/sony/gobreaker"
	"resty.dev/v3"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
	ErrUnexpected  = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Settings configures one upstream service.
type Settings struct {
	Name    string
	BaseURL string
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after the first one.
	// Zero means exactly one request per call.
	MaxRetries uint

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client wraps a resty client with a circuit breaker.
type Client struct {
	name     string
	http     *resty.Client
	circuit  *gobreaker.CircuitBreaker
	settings Settings
}

// New builds a Client for the given service.
func New(s Settings) *Client {
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = 500 * time.Millisecond
	}
	if s.MaxBackoff <= 0 {
		s.MaxBackoff = 5 * time.Second
	}

	hc := resty.New()
	hc.SetBaseURL(s.BaseURL)
	if s.Timeout > 0 {
		hc.SetTimeout(s.Timeout)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         s.Name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: healthy,
	})

	return &Client{
		name:     s.Name,
		http:     hc,
		circuit:  cb,
		settings: s,
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) *Client {
	c.http.SetHeader(key, value)
	return c
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Do executes the request issued by send through the circuit breaker. send
// receives a fresh request bound to ctx on every attempt and must issue it
// (Get, Post, ...). Non-2xx responses are turned into errors.
func (c *Client) Do(ctx context.Context, send func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response

	err := retry.Do(
		func() error {
			result, err := c.circuit.Execute(func() (interface{}, error) {
				res, sendErr := send(c.http.R().SetContext(ctx))
				if sendErr != nil {
					return nil, sendErr
				}

				switch {
				case res.StatusCode() == http.StatusTooManyRequests:
					return nil, ErrRateLimited
				case res.StatusCode() >= 500:
					return nil, fmt.Errorf("%w: %d", ErrServerError, res.StatusCode())
				case res.IsError():
					return nil, fmt.Errorf("%w: %d: %s", ErrUnexpected, res.StatusCode(), res.String())
				}
				return res, nil
			})
			if err != nil {
				if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
					return retry.Unrecoverable(fmt.Errorf("%w: %v", ErrCircuitOpen, err))
				}
				if !retryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}

			res, ok := result.(*resty.Response)
			if !ok {
				return retry.Unrecoverable(fmt.Errorf("unexpected result type from circuit breaker"))
			}
			resp = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.settings.MaxRetries+1),
		retry.Delay(c.settings.InitialBackoff),
		retry.MaxDelay(c.settings.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return resp, nil
}

// retryable reports whether another attempt could succeed. Client errors
// other than rate limiting will fail the same way again.
func retryable(err error) bool {
	return !errors.Is(err, ErrUnexpected) && !errors.Is(err, context.Canceled)
}

// healthy reports whether err still shows a working service. A 4xx answer
// such as "city not found" or a cancelled caller says nothing about the
// service, so only rate limiting, server and transport errors trip the breaker.
func healthy(err error) bool {
	return err == nil || errors.Is(err, ErrUnexpected) || errors.Is(err, context.Canceled)
}
