package polling

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *fakeClock
	store *RedisStore
	pub   *Publisher
}

func newFixture(t *testing.T, signal Signaler) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := newFakeClock()
	var seq atomic.Int64
	store := NewRedisStore(nil, rdb, StoreConfig{Now: clock.Now})
	pub := NewPublisher(nil, store, signal, nil, PublisherConfig{
		Now:   clock.Now,
		NewID: func() string { return fmt.Sprintf("evt-%03d", seq.Add(1)) },
	})
	return &fixture{mr: mr, rdb: rdb, clock: clock, store: store, pub: pub}
}
