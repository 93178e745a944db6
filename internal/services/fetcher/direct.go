package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/models"
)

// DefaultTimeout is the default HTTP timeout for direct fetches.
const DefaultTimeout = 30 * time.Second

// defaultHeaders are sent on every direct request unless overridden by
// the per-request header map. They match what a mobile Safari sends for
// a top-level navigation.
var defaultHeaders = map[string]string{
	"accept":          "*/*",
	"accept-language": "en-GB,en;q=0.6",
	"sec-fetch-dest":  "document",
	"sec-fetch-mode":  "navigate",
	"sec-fetch-site":  "none",
	"sec-fetch-user":  "?1",
	"sec-gpc":         "1",
}

// DirectClient fetches pages over plain HTTP. Redirects are followed;
// a redirect that lands on a near-empty body is reported as retryable
// so the caller can switch tiers.
type DirectClient struct {
	httpClient *http.Client
	userAgent  string
	perHostRPS float64
	logger     arbor.ILogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// DirectOption configures the DirectClient.
type DirectOption func(*DirectClient)

// WithUserAgent sets the user-agent header.
func WithUserAgent(ua string) DirectOption {
	return func(c *DirectClient) {
		c.userAgent = ua
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) DirectOption {
	return func(c *DirectClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) DirectOption {
	return func(c *DirectClient) {
		c.httpClient = httpClient
	}
}

// WithPerHostRPS enables a per-host politeness limiter. Zero disables
// limiting.
func WithPerHostRPS(rps float64) DirectOption {
	return func(c *DirectClient) {
		c.perHostRPS = rps
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) DirectOption {
	return func(c *DirectClient) {
		c.logger = logger
	}
}

// NewDirectClient creates a direct HTTP fetch client.
func NewDirectClient(opts ...DirectOption) *DirectClient {
	c := &DirectClient{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: common.DefaultUserAgent,
		limiters:  make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = common.GetLogger()
	}

	return c
}

// hostLimiter returns the politeness limiter for a host, creating it on
// first use. Burst of 1 keeps requests evenly spaced.
func (c *DirectClient) hostLimiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.perHostRPS), 1)
		c.limiters[host] = limiter
	}
	return limiter
}

// Fetch performs one GET. Status >= 400, transport failures and
// redirect traps come back as *FetchError with a retry-after hint.
func (c *DirectClient) Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	if c.perHostRPS > 0 {
		parsed, err := url.Parse(req.URL)
		if err == nil && parsed.Host != "" {
			if err := c.hostLimiter(parsed.Host).Wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, newTransportError(req.URL, err)
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	for key, value := range defaultHeaders {
		httpReq.Header.Set(key, value)
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	c.logger.Debug().
		Str("url", req.URL).
		Msg("Direct fetch")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newTransportError(req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(req.URL, err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return nil, newStatusError(req.URL, resp.StatusCode)
	}

	if finalURL != req.URL && len(body) < smallBodyThreshold {
		c.logger.Warn().
			Str("url", req.URL).
			Str("final_url", finalURL).
			Int("body_bytes", len(body)).
			Msg("Redirect landed on a near-empty page")
		return nil, newRedirectTrapError(req.URL, finalURL, len(body))
	}

	return &models.HTTPResponse{
		Content:    string(body),
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		FinalURL:   finalURL,
	}, nil
}

// Close releases idle connections.
func (c *DirectClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// flattenHeaders keeps the first value for each header key.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key := range h {
		out[key] = h.Get(key)
	}
	return out
}
