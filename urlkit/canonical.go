// Package urlkit provides URL canonicalization for evidence dedup and
// live-URL validation with SSRF guards.
package urlkit

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingParams are query parameters stripped during canonicalization.
// They identify the visitor or campaign, never the document.
var trackingParams = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"ref":    true,
	"mc_cid": true,
	"mc_eid": true,
	"igshid": true,
}

var multiSlash = regexp.MustCompile(`/{2,}`)

// Canonicalize reduces a raw URL to a stable comparison key: lowercase
// scheme and host, "www." prefix and default port stripped, duplicate path
// slashes collapsed, trailing slash removed (except root), fragment dropped,
// tracking query parameters dropped, and surviving parameters sorted by key.
//
// Non-http(s) or unparsable input is returned trimmed as-is, so the result
// is always usable as a map key. Canonicalize is idempotent.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return raw
	}

	parsed.Scheme = scheme
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	} else {
		host = strings.TrimSuffix(host, ":443")
	}
	parsed.Host = host

	// Slash surgery happens on the encoded form so an escaped slash (%2F)
	// inside a segment is never confused with a separator. The result is
	// handed back as the RawPath so String() does not re-escape it.
	escaped := parsed.EscapedPath()
	if escaped == "" {
		escaped = "/"
	}
	escaped = multiSlash.ReplaceAllString(escaped, "/")
	if escaped != "/" {
		escaped = strings.TrimRight(escaped, "/")
	}
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return raw
	}
	parsed.Path = decoded
	parsed.RawPath = ""
	if decoded != escaped {
		parsed.RawPath = escaped
	}

	parsed.Fragment = ""
	parsed.RawQuery = normalizeQuery(parsed.Query())

	return parsed.String()
}

// normalizeQuery drops tracking parameters and rebuilds the query string
// with keys (and values per key) in sorted order.
func normalizeQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if trackingParams[strings.ToLower(k)] || strings.HasPrefix(strings.ToLower(k), "utm_") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var buf strings.Builder
	for i, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(url.QueryEscape(k))
			buf.WriteByte('=')
			buf.WriteString(url.QueryEscape(v))
		}
	}
	return buf.String()
}
