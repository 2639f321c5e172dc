package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries uint) (*Client, *int32) {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	c := New(Settings{
		Name:           "test",
		BaseURL:        server.URL,
		Timeout:        5 * time.Second,
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c, &calls
}

func get(c *Client) (*resty.Response, error) {
	return c.Do(context.Background(), func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/ping")
	})
}

func TestClient_Do(t *testing.T) {
	tests := []struct {
		name      string
		retries   uint
		statuses  []int
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "success on first attempt",
			statuses:  []int{http.StatusOK},
			wantCalls: 1,
		},
		{
			name:      "server error without retries makes a single request",
			statuses:  []int{http.StatusInternalServerError},
			wantErr:   ErrServerError,
			wantCalls: 1,
		},
		{
			name:      "server error is retried when retries are configured",
			retries:   2,
			statuses:  []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK},
			wantCalls: 3,
		},
		{
			name:      "rate limiting is reported",
			statuses:  []int{http.StatusTooManyRequests},
			wantErr:   ErrRateLimited,
			wantCalls: 1,
		},
		{
			name:      "client errors are not retried",
			retries:   3,
			statuses:  []int{http.StatusNotFound},
			wantErr:   ErrUnexpected,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int32
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				i := atomic.AddInt32(&n, 1) - 1
				status := tt.statuses[len(tt.statuses)-1]
				if int(i) < len(tt.statuses) {
					status = tt.statuses[i]
				}
				w.WriteHeader(status)
			}, tt.retries)

			resp, err := get(c)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "test")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
		})
	}
}

func TestClient_DoTransportError(t *testing.T) {
	c := New(Settings{Name: "down", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	defer c.Close()

	_, err := get(c)
	require.Error(t, err)
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, 0)

	// More consecutive 404s than the breaker tolerates for real failures.
	for i := 0; i < 10; i++ {
		_, err := get(c)
		require.ErrorIs(t, err, ErrUnexpected)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, int32(10), atomic.LoadInt32(calls))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	for i := 0; i < 6; i++ {
		_, err := get(c)
		require.ErrorIs(t, err, ErrServerError)
	}

	_, err := get(c)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(6), atomic.LoadInt32(calls))
}
