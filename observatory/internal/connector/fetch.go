package connector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stefanhermes-code/Observatory/urlkit"
)

// FetchConfig configures the shared connector fetcher.
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`     // per-request timeout. Default: 15s.
	MaxBytes   int64         `yaml:"max_bytes"`   // response body cap. Default: 5MB.
	UserAgent  string        `yaml:"user_agent"`
	MaxRetries int           `yaml:"max_retries"` // retries after the first attempt. Default: 2.
	Backoff    time.Duration `yaml:"backoff"`     // initial retry wait, doubled per attempt. Default: 2s.
	// Guard validates URLs before fetch (SSRF prevention).
	// Default: urlkit.GuardURL.
	Guard func(string) error `yaml:"-"`
}

func (c *FetchConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; Observatory/2.0)"
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.Guard == nil {
		c.Guard = urlkit.GuardURL
	}
}

// Fetcher performs bounded HTTP GETs with retry and SSRF protection on
// redirects. One Fetcher is shared by all connectors of a run.
type Fetcher struct {
	client *http.Client
	config FetchConfig
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	guard := cfg.Guard
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := guard(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
		logger: logger,
	}
}

// Get retrieves a URL, retrying transient failures (network errors, 429,
// 5xx) with exponential backoff. Retries respect context cancellation.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, int, error) {
	if err := f.config.Guard(url); err != nil {
		return nil, 0, fmt.Errorf("URL blocked: %w", err)
	}

	var lastErr error
	var lastCode int
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := f.config.Backoff * (1 << uint(attempt-1))
			f.logger.Warn("fetch: retrying",
				"url", url, "attempt", attempt, "max_retries", f.config.MaxRetries,
				"backoff_ms", wait.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, lastCode, lastErr
			case <-time.After(wait):
			}
		}

		body, code, err := f.get(ctx, url)
		lastCode = code
		if err == nil {
			return body, code, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastCode, lastErr
		}
		if !retryable(code) {
			return nil, lastCode, lastErr
		}
	}
	return nil, lastCode, lastErr
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// retryable reports whether a status code is worth another attempt.
// code 0 means the request never produced a response (network error).
func retryable(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}
