package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFrozenStore returns a store whose clock only moves when advance is
// called, so bucket refills are exact.
func newFrozenStore(rps float64, burst int) (*MemoryStore, func(time.Duration)) {
	store := NewMemoryStore(rps, burst, zerowrap.Default())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return store, func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
}

func TestMemoryStore_BurstThenRefill(t *testing.T) {
	store, advance := newFrozenStore(2, 3)
	ctx := context.Background()

	for i := range 3 {
		assert.True(t, store.Allow(ctx, "ip:203.0.113.7"), "request %d is within the burst", i+1)
	}
	assert.False(t, store.Allow(ctx, "ip:203.0.113.7"), "burst exhausted")

	advance(500 * time.Millisecond)
	assert.True(t, store.Allow(ctx, "ip:203.0.113.7"), "one token refilled at 2 rps")
	assert.False(t, store.Allow(ctx, "ip:203.0.113.7"))
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store, _ := newFrozenStore(1, 1)
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "ip:203.0.113.7"))
	assert.False(t, store.Allow(ctx, "ip:203.0.113.7"))

	assert.True(t, store.Allow(ctx, "ip:203.0.113.8"), "another client has its own bucket")
	assert.True(t, store.Allow(ctx, "global"), "the global bucket is a separate key")
	assert.Equal(t, 3, store.Len())
}

func TestMemoryStore_AllowN(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		takes []int
		want  []bool
	}{
		{name: "two halves of the burst", burst: 10, takes: []int{5, 5, 1}, want: []bool{true, true, false}},
		{name: "more than the burst never fits", burst: 5, takes: []int{10, 3}, want: []bool{false, true}},
		{name: "exact burst", burst: 4, takes: []int{4, 1}, want: []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newFrozenStore(10, tt.burst)
			for i, n := range tt.takes {
				assert.Equal(t, tt.want[i], store.AllowN(context.Background(), "global", n), "take %d of %d", i+1, n)
			}
		})
	}
}

func TestMemoryStore_ConcurrentClientsShareOneBucket(t *testing.T) {
	store, _ := newFrozenStore(1000, 100)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if store.Allow(ctx, "ip:10.0.0.2") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// The clock does not move, so exactly the burst gets through.
	assert.Equal(t, 100, allowed)
}

func TestMemoryStore_EvictsIdleKeys(t *testing.T) {
	store, advance := newFrozenStore(1, 1)
	ctx := context.Background()

	for i := range maxKeys {
		store.Allow(ctx, fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256))
	}
	require.Equal(t, maxKeys, store.Len())

	advance(idleAfter / 2)
	store.Allow(ctx, "ip:10.0.0.0")

	advance(idleAfter / 2)
	assert.True(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.Equal(t, 2, store.Len(), "only the recently seen client survives")
}

func TestMemoryStore_KeepsActiveKeysWhenFull(t *testing.T) {
	store, _ := newFrozenStore(1, 1)
	ctx := context.Background()

	for i := range maxKeys {
		store.Allow(ctx, fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256))
	}
	assert.True(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.Equal(t, maxKeys+1, store.Len())
}
