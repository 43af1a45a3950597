package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	maxAttempts     = 3
	initialInterval = 1 * time.Second
)

// FetchError is returned when all attempts for a URL are exhausted.
// Status is zero when the failure never produced an HTTP response.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher issues GET requests with a desktop user agent, a per-request
// timeout, retries with exponential backoff, and per-host rate limiting.
type Fetcher struct {
	client *http.Client

	mu       sync.Mutex
	limits   map[string]time.Duration // host suffix -> minimum spacing
	limiters map[string]*rate.Limiter // full host -> limiter
}

// NewFetcher builds a Fetcher. limits maps host suffixes (e.g.
// "wikipedia.org") to the minimum spacing between requests to that host.
func NewFetcher(timeout time.Duration, limits map[string]time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch GETs the URL and returns the response body. Retries up to
// maxAttempts on network errors and 5xx responses; 4xx responses fail
// immediately. Cancelling the context aborts in-flight requests and stops
// further retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	var lastStatus int

	attempt := func() error {
		if err := f.wait(ctx, rawURL); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", desktopUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		lastStatus = resp.StatusCode

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)

	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, &FetchError{URL: rawURL, Status: lastStatus, Err: err}
	}
	return body, nil
}

// FetchText is Fetch with the body decoded as a string.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	b, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// wait blocks until the host's rate limiter permits the next request.
func (f *Fetcher) wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return f.limiter(u.Hostname()).Wait(ctx)
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lim, ok := f.limiters[host]; ok {
		return lim
	}

	spacing := 1 * time.Second
	for suffix, d := range f.limits {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			spacing = d
			break
		}
	}

	lim := rate.NewLimiter(rate.Every(spacing), 1)
	f.limiters[host] = lim
	return lim
}
