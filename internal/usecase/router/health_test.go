package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/spaceport/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestHealth(maxFails int, failTimeout time.Duration) (*upstreamHealth, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	u := domain.DefaultUpstream("preview_backend", 7861)
	u.MaxFails = maxFails
	u.FailTimeout = failTimeout
	h := newUpstreamHealth(u)
	h.now = clock.Now
	return h, clock
}

func TestUpstreamHealth_MarksDownAfterMaxFails(t *testing.T) {
	h, clock := newTestHealth(2, 10*time.Second)

	assert.False(t, h.fail("connection refused"))
	assert.False(t, h.snapshot().Down)

	assert.True(t, h.fail("connection refused"))
	snap := h.snapshot()
	assert.True(t, snap.Down)
	assert.Equal(t, 2, snap.Fails)
	assert.Equal(t, "connection refused", snap.LastError)
	assert.Equal(t, "127.0.0.1:7861", snap.Address)

	clock.Advance(11 * time.Second)
	snap = h.snapshot()
	assert.False(t, snap.Down, "down period is fail_timeout")
	assert.Zero(t, snap.Fails)
}

func TestUpstreamHealth_WindowExpires(t *testing.T) {
	h, clock := newTestHealth(2, 10*time.Second)

	h.fail("timeout")
	clock.Advance(11 * time.Second)
	assert.False(t, h.fail("timeout"), "failures outside the window do not add up")
	assert.Equal(t, 1, h.snapshot().Fails)
}

func TestUpstreamHealth_SuccessResets(t *testing.T) {
	h, _ := newTestHealth(1, 10*time.Second)

	assert.True(t, h.fail("503 Service Unavailable"))
	h.success()

	snap := h.snapshot()
	assert.False(t, snap.Down)
	assert.Zero(t, snap.Fails)
	assert.Equal(t, "503 Service Unavailable", snap.LastError)
}

func TestUpstreamHealth_Disabled(t *testing.T) {
	h, _ := newTestHealth(0, 10*time.Second)

	assert.False(t, h.fail("connection refused"))
	snap := h.snapshot()
	assert.False(t, snap.Down)
	assert.Zero(t, snap.Fails)
}
