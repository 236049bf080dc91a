package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/maltedev/feed-normalizer/internal/ratelimit"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// HTTPFetcher is the reference Fetcher over net/http. It paces requests
// through an optional rate limiter and reports outcomes back to limiters
// that adapt.
type HTTPFetcher struct {
	client    *http.Client
	limiter   ratelimit.RateLimiter
	userAgent string
	headers   http.Header
	logger    *slog.Logger
}

type Option func(*HTTPFetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

func WithRateLimiter(l ratelimit.RateLimiter) Option {
	return func(f *HTTPFetcher) { f.limiter = l }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

func WithHeader(key, value string) Option {
	return func(f *HTTPFetcher) { f.headers.Set(key, value) }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = l }
}

func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
		headers:   make(http.Header),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "http_fetcher")
	return f
}

func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return f.do(ctx, http.MethodGet, u.String(), nil)
}

func (f *HTTPFetcher) Post(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return f.do(ctx, http.MethodPost, rawURL, body)
}

func (f *HTTPFetcher) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range f.headers {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.record(false)
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.record(false)
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("fetched",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.record(false)
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	f.record(true)
	return data, nil
}

func (f *HTTPFetcher) record(ok bool) {
	fb, adaptive := f.limiter.(ratelimit.Feedback)
	if !adaptive {
		return
	}
	if ok {
		fb.RecordSuccess()
	} else {
		fb.RecordError()
	}
}
