package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/models"
)

// fastRetryConfig keeps retry tests in the millisecond range.
func fastRetryConfig(maxRetries int) common.RetryConfig {
	return common.RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  0.001,
		MaxDelay:      0.01,
		BackoffFactor: 2.0,
	}
}

func retryableErr(url string) *FetchError {
	return &FetchError{URL: url, StatusCode: 503, Reason: "server error", RetryAfter: time.Millisecond}
}

func TestBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return &models.HTTPResponse{StatusCode: 200}, nil
	}, fastRetryConfig(3), arbor.NewLogger())

	resp, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		if calls < 3 {
			return nil, retryableErr("https://example.com/a")
		}
		return &models.HTTPResponse{StatusCode: 200}, nil
	}, fastRetryConfig(3), arbor.NewLogger())

	_, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return nil, retryableErr("https://example.com/a")
	}, fastRetryConfig(2), arbor.NewLogger())

	_, err := fn(context.Background())
	require.Error(t, err)

	// max_retries=2 means three total attempts.
	assert.Equal(t, 3, calls)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 503, fetchErr.StatusCode)
}

func TestBackoff_NonRetryablePassesThrough(t *testing.T) {
	calls := 0
	boom := errors.New("parse failure")
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return nil, boom
	}, fastRetryConfig(3), arbor.NewLogger())

	_, err := fn(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestBackoff_RetryAfterFloorsWait(t *testing.T) {
	calls := 0
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		if calls == 1 {
			return nil, &FetchError{URL: "u", Reason: "client error", StatusCode: 429, RetryAfter: 60 * time.Millisecond}
		}
		return &models.HTTPResponse{StatusCode: 200}, nil
	}, fastRetryConfig(1), arbor.NewLogger())

	start := time.Now()
	_, err := fn(context.Background())
	require.NoError(t, err)

	// Computed delay is 1ms but the hint floors the wait at 60ms.
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestBackoff_ContextCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := Backoff(func(ctx context.Context) (*models.HTTPResponse, error) {
		return nil, &FetchError{URL: "u", Reason: "server error", StatusCode: 500, RetryAfter: 10 * time.Second}
	}, fastRetryConfig(3), arbor.NewLogger())

	done := make(chan error, 1)
	go func() {
		_, err := fn(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("backoff did not honor context cancellation")
	}
}

func TestCooldown_OneExtraPass(t *testing.T) {
	calls := 0
	inner := func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return nil, retryableErr("https://example.com/a")
	}

	fn := Cooldown(inner, time.Millisecond, arbor.NewLogger())
	_, err := fn(context.Background())
	require.Error(t, err)

	// One pass plus exactly one recovery pass, never a loop.
	assert.Equal(t, 2, calls)
}

func TestCooldown_SecondPassCanSucceed(t *testing.T) {
	calls := 0
	inner := func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		if calls == 1 {
			return nil, retryableErr("https://example.com/a")
		}
		return &models.HTTPResponse{StatusCode: 200}, nil
	}

	fn := Cooldown(inner, time.Millisecond, arbor.NewLogger())
	resp, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestCooldown_NonRetryableNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("filter excluded")
	inner := func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return nil, boom
	}

	fn := Cooldown(inner, time.Millisecond, arbor.NewLogger())
	_, err := fn(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_WrapsClientInChain(t *testing.T) {
	inner := &stubClient{fetchFunc: func(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
		return nil, retryableErr(req.URL)
	}}

	client := WithRetry(inner, fastRetryConfig(1), time.Millisecond, arbor.NewLogger())
	_, err := client.Fetch(context.Background(), &models.HTTPRequest{URL: "https://example.com/a"})
	require.Error(t, err)

	// Two backoff attempts per pass, one cooldown recovery pass.
	assert.Equal(t, 4, inner.calls)
}

func TestComposedChain_AttemptCount(t *testing.T) {
	calls := 0
	attempt := func(ctx context.Context) (*models.HTTPResponse, error) {
		calls++
		return nil, retryableErr("https://example.com/a")
	}

	cfg := fastRetryConfig(2)
	chain := Cooldown(Backoff(attempt, cfg, arbor.NewLogger()), time.Millisecond, arbor.NewLogger())

	_, err := chain(context.Background())
	require.Error(t, err)

	// (max_retries+1) attempts per backoff run, two runs around the cooldown.
	assert.Equal(t, 6, calls)
}
