package urlkit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Status classifies the outcome of a live-URL check.
type Status string

// Validation status values, persisted verbatim on candidate items.
const (
	Valid2xx      Status = "valid_2xx"
	Valid3xx      Status = "valid_3xx"
	Restricted403 Status = "restricted_403" // access denied but URL presumed real
	ErrorOther    Status = "error_other"    // DNS/timeout/5xx — likely dead
	NotChecked    Status = "not_checked"
)

// maxRedirects bounds the redirect chain followed during a check.
const maxRedirects = 5

// ValidatorConfig configures a Validator.
type ValidatorConfig struct {
	Timeout   time.Duration // per-check timeout. Default: 8s.
	UserAgent string
	// Guard validates URLs before any request (SSRF prevention).
	// Default: GuardURL.
	Guard func(string) error
}

func (c *ValidatorConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; Observatory/2.0)"
	}
	if c.Guard == nil {
		c.Guard = GuardURL
	}
}

// Validator performs bounded live checks against candidate URLs.
type Validator struct {
	client *http.Client
	config ValidatorConfig
}

// NewValidator creates a Validator with redirect-hop limiting and SSRF
// guards applied on every hop.
func NewValidator(cfg ValidatorConfig) *Validator {
	cfg.defaults()
	guard := cfg.Guard
	return &Validator{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := guard(req.URL.String()); err != nil {
					return err
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Check classifies a URL via a HEAD request with GET fallback. 401/403 mean
// the document is real but bot-blocked or paywalled, so they classify as
// Restricted403 rather than dead. Check never returns an error: any network
// or protocol failure degrades to ErrorOther and the caller decides policy.
//
// The returned int is the HTTP status code, or 0 when no response arrived.
func (v *Validator) Check(ctx context.Context, rawURL string) (Status, int) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ErrorOther, 0
	}
	if err := v.config.Guard(rawURL); err != nil {
		return ErrorOther, 0
	}

	status, code, ok := v.attempt(ctx, http.MethodHead, rawURL)
	if ok {
		// Some servers reject HEAD outright; retry those with GET.
		if code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented {
			if s2, c2, ok2 := v.attempt(ctx, http.MethodGet, rawURL); ok2 {
				return s2, c2
			}
		}
		return status, code
	}
	if status, code, ok = v.attempt(ctx, http.MethodGet, rawURL); ok {
		return status, code
	}
	return ErrorOther, 0
}

// attempt issues one request and classifies the response.
// ok is false when no HTTP response was obtained at all.
func (v *Validator) attempt(ctx context.Context, method, rawURL string) (Status, int, bool) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return ErrorOther, 0, false
	}
	req.Header.Set("User-Agent", v.config.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return ErrorOther, 0, false
	}
	resp.Body.Close()

	return classify(resp.StatusCode), resp.StatusCode, true
}

func classify(code int) Status {
	switch {
	case code >= 200 && code < 300:
		return Valid2xx
	case code >= 300 && code < 400:
		return Valid3xx
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return Restricted403
	default:
		return ErrorOther
	}
}
