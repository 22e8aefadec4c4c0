package router

import (
	"sync"
	"time"

	"github.com/bnema/spaceport/internal/domain"
)

// upstreamHealth counts failed attempts inside a fail_timeout window. Once
// max_fails is reached the upstream is reported down until fail_timeout has
// passed. Upstreams have a single server, so a down upstream is still tried.
type upstreamHealth struct {
	upstream domain.Upstream
	now      func() time.Time

	mu          sync.Mutex
	fails       int
	windowStart time.Time
	downUntil   time.Time
	lastFailure time.Time
	lastError   string
}

func newUpstreamHealth(u domain.Upstream) *upstreamHealth {
	return &upstreamHealth{upstream: u, now: time.Now}
}

// fail records an unsuccessful attempt and reports whether it marked the
// upstream down.
func (h *upstreamHealth) fail(reason string) bool {
	if h.upstream.MaxFails <= 0 {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if h.windowStart.IsZero() || now.Sub(h.windowStart) > h.upstream.FailTimeout {
		h.windowStart = now
		h.fails = 0
	}
	h.fails++
	h.lastFailure = now
	h.lastError = reason

	if h.fails >= h.upstream.MaxFails && !now.Before(h.downUntil) {
		h.downUntil = now.Add(h.upstream.FailTimeout)
		return true
	}
	return false
}

// success resets the failure accounting.
func (h *upstreamHealth) success() {
	if h.upstream.MaxFails <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.fails = 0
	h.windowStart = time.Time{}
	h.downUntil = time.Time{}
}

func (h *upstreamHealth) snapshot() domain.UpstreamHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	fails := h.fails
	if !h.windowStart.IsZero() && now.Sub(h.windowStart) > h.upstream.FailTimeout {
		fails = 0
	}
	return domain.UpstreamHealth{
		Name:        h.upstream.Name,
		Address:     h.upstream.Address(),
		Down:        now.Before(h.downUntil),
		Fails:       fails,
		LastFailure: h.lastFailure,
		LastError:   h.lastError,
	}
}
