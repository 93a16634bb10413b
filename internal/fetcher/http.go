// Package fetcher provides rate-limited HTTP access and typed CSV table IO
// for the pipeline's remote and local data sources.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apexloop/circuitweather/internal/resilience"
)

// Options configures the HTTP client.
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// RatePerSec is the politeness limit applied per remote host.
	RatePerSec float64
	Burst      int

	Retry resilience.RetryConfig
}

// Client is a rate-limited HTTP client with retry on transient failures.
// One limiter is maintained per remote host so bulk probes cannot overwhelm
// a single third-party service.
type Client struct {
	http *http.Client
	opts Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "circuitweather/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.RatePerSec)
		if opts.Burst < 1 {
			opts.Burst = 1
		}
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.opts.RatePerSec), c.opts.Burst)
		c.limiters[host] = lim
	}
	return lim
}

// do waits on the host limiter, issues the request, and classifies 429/5xx
// responses as transient so the surrounding retry loop handles them.
func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
	if err := c.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		_ = resp.Body.Close()
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	return resp, nil
}

// Do issues the request with retry on transient failures and returns the
// response. Non-transient statuses (404 included) come back as a response,
// not an error; the caller owns the interpretation.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
	retry := c.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(hostOf(rawURL), method)
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		return c.do(ctx, method, rawURL, header)
	})
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

// Download fetches the URL and returns the response body. Any status other
// than 200 is an error.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.Do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path atomically (temp file + rename),
// so an interrupted download is never observed by readers.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := c.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create dir")
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create temp file")
	}

	n, err := io.Copy(file, body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, eris.Wrap(err, "fetcher: write file")
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return n, eris.Wrap(err, "fetcher: rename temp file")
	}

	zap.L().Debug("fetcher: downloaded file",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}

// Head issues a HEAD request and returns the status code. A transport-level
// failure returns a non-nil error and status 0.
func (c *Client) Head(ctx context.Context, rawURL string) (int, error) {
	resp, err := c.Do(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// GetRange issues a GET with a Range header requesting the first byte only,
// for servers that reject HEAD. Returns the status code without the body.
func (c *Client) GetRange(ctx context.Context, rawURL string) (int, error) {
	header := http.Header{}
	header.Set("Range", "bytes=0-0")
	resp, err := c.Do(ctx, http.MethodGet, rawURL, header)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
