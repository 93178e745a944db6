package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// Doer is a single fetch attempt. Retry wrappers compose over it, so
// the full chain for a worker is Cooldown(Backoff(client.Fetch)).
type Doer func(ctx context.Context) (*models.HTTPResponse, error)

// Backoff wraps fn with exponential backoff. Retryable errors
// (*FetchError) are retried up to cfg.MaxRetries times after the first
// attempt; the wait before each retry is the current delay clamped to
// cfg.MaxDelay, but never less than the error's RetryAfter hint. Any
// other error is returned immediately.
func Backoff(fn Doer, cfg common.RetryConfig, logger arbor.ILogger) Doer {
	return func(ctx context.Context) (*models.HTTPResponse, error) {
		delay := cfg.InitialDelayDuration()
		attempts := cfg.MaxRetries + 1

		var lastErr error
		for attempt := 1; attempt <= attempts; attempt++ {
			resp, err := fn(ctx)
			if err == nil {
				return resp, nil
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				return nil, err
			}
			lastErr = err

			if attempt == attempts {
				break
			}

			wait := delay
			if wait > cfg.MaxDelayDuration() {
				wait = cfg.MaxDelayDuration()
			}
			if fetchErr.RetryAfter > wait {
				wait = fetchErr.RetryAfter
			}
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)

			logger.Debug().
				Str("url", fetchErr.URL).
				Int("attempt", attempt).
				Str("wait", wait.String()).
				Err(err).
				Msg("Fetch failed, backing off")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		return nil, lastErr
	}
}

// WithRetry decorates a fetch tier so every request runs through the
// standard chain Cooldown(Backoff(fetch)).
func WithRetry(client interfaces.FetchClient, cfg common.RetryConfig, cooldown time.Duration, logger arbor.ILogger) interfaces.FetchClient {
	return &retryClient{inner: client, cfg: cfg, cooldown: cooldown, logger: logger}
}

type retryClient struct {
	inner    interfaces.FetchClient
	cfg      common.RetryConfig
	cooldown time.Duration
	logger   arbor.ILogger
}

func (c *retryClient) Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	attempt := func(ctx context.Context) (*models.HTTPResponse, error) {
		return c.inner.Fetch(ctx, req)
	}
	return Cooldown(Backoff(attempt, c.cfg, c.logger), c.cooldown, c.logger)(ctx)
}

func (c *retryClient) Close() error {
	return c.inner.Close()
}

// Cooldown wraps fn with a single recovery pass: when the whole inner
// chain fails with a retryable error, sleep once and run it exactly one
// more time. There is no loop here; persistent failures bubble up to
// the queue's failure accounting.
func Cooldown(fn Doer, d time.Duration, logger arbor.ILogger) Doer {
	return func(ctx context.Context) (*models.HTTPResponse, error) {
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			return nil, err
		}

		logger.Info().
			Str("url", fetchErr.URL).
			Str("cooldown", d.String()).
			Msg("Fetch chain exhausted, cooling down for one more pass")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}

		return fn(ctx)
	}
}
