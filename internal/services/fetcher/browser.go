package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sony/gobreaker"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/models"
)

// DefaultBrowserWait is the quiescent delay after document readiness,
// giving client-side rendering a chance to finish.
const DefaultBrowserWait = 2 * time.Second

// BrowserClient fetches pages through a remote headless browser over
// the DevTools websocket. The browser connection is established lazily
// on first use and shared; each fetch runs in a fresh tab. All calls go
// through a circuit breaker so a crashed or wedged browser fails fast
// instead of stalling every worker on the websocket.
type BrowserClient struct {
	wsURL          string
	additionalWait time.Duration
	logger         arbor.ILogger
	breaker        *gobreaker.CircuitBreaker

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// BrowserOption configures the BrowserClient.
type BrowserOption func(*BrowserClient)

// WithBrowserWait sets the post-readiness quiescent delay.
func WithBrowserWait(d time.Duration) BrowserOption {
	return func(c *BrowserClient) {
		c.additionalWait = d
	}
}

// WithBrowserLogger sets a logger.
func WithBrowserLogger(logger arbor.ILogger) BrowserOption {
	return func(c *BrowserClient) {
		c.logger = logger
	}
}

// NewBrowserClient creates a browser fetch client for the given
// DevTools websocket URL. No connection is made until the first fetch.
func NewBrowserClient(wsURL string, opts ...BrowserOption) *BrowserClient {
	c := &BrowserClient{
		wsURL:          wsURL,
		additionalWait: DefaultBrowserWait,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = common.GetLogger()
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "browser-fetch",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// HTTP status errors are the site's problem, not the
		// browser's; only connection-level failures trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fetchErr *FetchError
			return errors.As(err, &fetchErr) && fetchErr.StatusCode != 0
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Browser circuit breaker state changed")
		},
	})

	return c
}

// ensureBrowser connects the shared browser context on first use.
func (c *BrowserClient) ensureBrowser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), c.wsURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the websocket handshake now, so a bad
	// DevTools URL surfaces here rather than mid-navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", c.wsURL, err)
	}

	c.logger.Info().Str("ws_url", c.wsURL).Msg("Connected to remote browser")

	c.allocCancel = allocCancel
	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	return browserCtx, nil
}

// Fetch renders the page in a fresh tab and returns the live DOM.
func (c *BrowserClient) Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, req)
	})
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &FetchError{
			URL:        req.URL,
			Reason:     "browser unavailable",
			RetryAfter: retryAfterBrowserBroken,
			Err:        err,
		}
	}
	return result.(*models.HTTPResponse), nil
}

func (c *BrowserClient) fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	browserCtx, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var (
		capMu    sync.Mutex
		captured bool
		status   int
		headers  = map[string]string{}
		finalURL = req.URL
	)

	// The first document response is the main document; redirect hops
	// never emit one, and iframe documents arrive later.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		capMu.Lock()
		defer capMu.Unlock()
		if captured {
			return
		}
		captured = true
		status = int(resp.Response.Status)
		finalURL = resp.Response.URL
		for key, value := range resp.Response.Headers {
			headers[key] = fmt.Sprint(value)
		}
	})

	c.logger.Debug().
		Str("url", req.URL).
		Msg("Browser fetch")

	var html string
	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.additionalWait),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &FetchError{
			URL:        req.URL,
			Reason:     "browser navigation failed",
			RetryAfter: retryAfterBrowserBroken,
			Err:        err,
		}
	}

	capMu.Lock()
	defer capMu.Unlock()

	if !captured {
		status = 200
	}
	if status >= 400 {
		return nil, newStatusError(req.URL, status)
	}

	return &models.HTTPResponse{
		Content:    html,
		StatusCode: status,
		Headers:    headers,
		FinalURL:   finalURL,
	}, nil
}

// Close tears down the shared browser connection. Per-fetch tabs are
// cancelled by their own fetches; this cancels the browser context and
// then the allocator.
func (c *BrowserClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.browserCtx = nil
	return nil
}
