package domain

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryCondition names an attempt outcome that allows the router to try the
// upstream again.
type RetryCondition string

const (
	// RetryOnError retries when the connection to the upstream fails.
	RetryOnError RetryCondition = "error"
	// RetryOnTimeout retries when connecting, sending or reading times out.
	RetryOnTimeout RetryCondition = "timeout"
	// RetryOnHTTP5xx retries on any 5xx response.
	RetryOnHTTP5xx RetryCondition = "http_5xx"
)

// ParseRetryCondition validates a retry condition. Besides the named
// conditions, "http_NNN" selects a single 5xx status code.
func ParseRetryCondition(s string) (RetryCondition, error) {
	c := RetryCondition(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case RetryOnError, RetryOnTimeout, RetryOnHTTP5xx:
		return c, nil
	}
	if code, ok := c.statusCode(); ok && code >= 500 && code <= 599 {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown retry condition %q", ErrInvalidConfig, s)
}

func (c RetryCondition) statusCode() (int, bool) {
	raw, ok := strings.CutPrefix(string(c), "http_")
	if !ok || len(raw) != 3 {
		return 0, false
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return code, true
}

// RetryPolicy is the next-upstream policy of a route.
type RetryPolicy struct {
	Attempts      int              // total attempts including the first one; <= 1 disables retries
	Budget        time.Duration    // no new attempt is started once this much time has elapsed, 0 means unbounded
	On            []RetryCondition // outcomes that are retried
	Backoff       time.Duration    // pause between attempts
	NonIdempotent bool             // retry POST/PATCH/... even after the request may have reached the upstream
	MaxBodyBytes  int64            // request bodies up to this size are buffered for replay
}

// Enabled reports whether the policy allows more than one attempt.
func (p RetryPolicy) Enabled() bool {
	return p.Attempts > 1 && len(p.On) > 0
}

// RetriesOn reports whether the policy lists the condition.
func (p RetryPolicy) RetriesOn(c RetryCondition) bool {
	for _, on := range p.On {
		if on == c {
			return true
		}
	}
	return false
}

// RetriesStatus reports whether a response with the given status is retried.
func (p RetryPolicy) RetriesStatus(code int) bool {
	if code < 500 {
		return false
	}
	for _, on := range p.On {
		if on == RetryOnHTTP5xx {
			return true
		}
		if c, ok := on.statusCode(); ok && c == code {
			return true
		}
	}
	return false
}

// IsIdempotent reports whether the method can be safely replayed.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// ProxyOptions holds per-route forwarding options.
type ProxyOptions struct {
	ConnectTimeout time.Duration
	SendTimeout    time.Duration // max time between two successive writes to the upstream
	ReadTimeout    time.Duration // max time between two successive reads from the upstream
	BufferSize     int           // size of the response copy buffers
	FlushInterval  time.Duration // negative flushes after every write
	MaxBodySize    int64         // request body limit, 0 means unlimited
}

// RouteRule maps an inbound path prefix to an upstream.
type RouteRule struct {
	Name        string
	Prefix      string
	StripPrefix bool
	Upstream    string
	Options     ProxyOptions
	Retry       RetryPolicy
}

// Matches reports whether the path falls under the rule's prefix.
func (r RouteRule) Matches(path string) bool {
	return strings.HasPrefix(path, r.Prefix)
}

// RewritePath returns the path forwarded to the upstream. With StripPrefix
// the prefix is removed while a leading slash is always kept.
func (r RouteRule) RewritePath(path string) string {
	if !r.StripPrefix {
		return path
	}
	rest := strings.TrimPrefix(path, strings.TrimSuffix(r.Prefix, "/"))
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

// BarePrefix returns the prefix without its trailing slash when requests for
// it should be redirected to the slash-terminated form. It returns "" for
// rules that do not need such a redirect.
func (r RouteRule) BarePrefix() string {
	if !r.StripPrefix || len(r.Prefix) < 2 || !strings.HasSuffix(r.Prefix, "/") {
		return ""
	}
	return strings.TrimSuffix(r.Prefix, "/")
}
