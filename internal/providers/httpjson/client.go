// Package httpjson is the outbound transport shared by the data providers:
// one request per call, JSON in and out, upstream failures mapped to
// apperr domain errors.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/circuitbreaker"
	"github.com/iris-assistant/backend/pkg/logger"
)

const maxErrorBody = 512

type Client struct {
	provider   string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	headers    map[string]string
}

type Option func(*Client)

// WithHeader sets a header on every request, e.g. the User-Agent that
// Nominatim requires.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers[key] = value
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(provider string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = circuitbreaker.NewCircuitBreaker(provider, circuitbreaker.Config{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && apperr.KindOf(err) == apperr.KindNetwork
		},
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		Logger: logger.GetLogger(),
	})

	return c
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) GetJSON(ctx context.Context, url string, out any, msgs apperr.StatusMessages) error {
	return c.do(ctx, http.MethodGet, url, nil, out, msgs)
}

func (c *Client) PostJSON(ctx context.Context, url string, body, out any, msgs apperr.StatusMessages) error {
	return c.do(ctx, http.MethodPost, url, body, out, msgs)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any, msgs apperr.StatusMessages) error {
	start := time.Now()

	err := c.breaker.Execute(ctx, func() error {
		return c.roundTrip(ctx, method, url, body, out, msgs)
	})
	if circuitbreaker.IsOpen(err) {
		err = apperr.Network(msgs.Default, err)
	}

	metrics.ProviderDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		logger.Warn("Provider request failed",
			zap.String("provider", c.provider),
			zap.String("method", method),
			zap.Error(err),
		)
	}
	metrics.ProviderRequests.WithLabelValues(c.provider, outcome).Inc()

	return err
}

func (c *Client) roundTrip(ctx context.Context, method, url string, body, out any, msgs apperr.StatusMessages) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(msgs.Default, fmt.Errorf("failed to marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apperr.Internal(msgs.Default, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return apperr.Network(msgs.Default, fmt.Errorf("failed to call %s: %w", c.provider, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.FromStatus(resp.StatusCode, msgs,
			fmt.Errorf("%s returned status %d: %s", c.provider, resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Network(msgs.Default, fmt.Errorf("failed to decode %s response: %w", c.provider, err))
	}

	logger.Debug("Provider request completed", zap.String("provider", c.provider), zap.Int("status", resp.StatusCode))
	return nil
}
