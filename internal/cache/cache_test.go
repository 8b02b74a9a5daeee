package cache

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	hits, misses, evictions int
}

func (o *countingObserver) CacheHit(string)      { o.hits++ }
func (o *countingObserver) CacheMiss(string)     { o.misses++ }
func (o *countingObserver) CacheEviction(string) { o.evictions++ }

func TestStoreGetSet(t *testing.T) {
	s := New[string]("test", 3, time.Minute, testLogger)

	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Set("a", "1")
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	s.Set("a", "2")
	v, _ = s.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, s.Len())
}

func TestStoreLRUEviction(t *testing.T) {
	s := New[int]("news", 3, time.Hour, testLogger)
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("c", 3)

	s.Set("d", 4)
	_, ok := s.Get("a")
	assert.False(t, ok, "oldest entry should be evicted first")
	assert.Equal(t, 3, s.Len())

	// Touch b so c becomes the least recently used.
	_, ok = s.Get("b")
	require.True(t, ok)
	s.Set("e", 5)

	_, ok = s.Get("c")
	assert.False(t, ok, "untouched entry should be evicted instead of the recently read one")
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestStoreTTLExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New[string]("pages", 20, 30*time.Minute, testLogger, WithClock(clock.Now))

	s.Set("u", "<html>")
	clock.Advance(29 * time.Minute)
	_, ok := s.Get("u")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = s.Get("u")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStoreExpiredPurgedBeforeLiveEviction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := New[int]("news", 2, time.Minute, testLogger, WithClock(clock.Now))

	s.Set("old", 1)
	clock.Advance(30 * time.Second)
	s.Set("live", 2)
	clock.Advance(45 * time.Second)

	// "old" is expired; inserting must drop it, not "live".
	s.Set("new", 3)
	_, ok := s.Get("live")
	assert.True(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
}

func TestStoreClearAndDelete(t *testing.T) {
	s := New[int]("x", 10, time.Hour, testLogger)
	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprint(i), i)
	}
	s.Delete("0")
	assert.Equal(t, 4, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("1")
	assert.False(t, ok)
}

func TestStoreValuesSkipsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := New[int]("x", 10, time.Minute, testLogger, WithClock(clock.Now))
	s.Set("a", 1)
	clock.Advance(2 * time.Minute)
	s.Set("b", 2)

	assert.Equal(t, []int{2}, s.Values())
}

func TestStoreObserver(t *testing.T) {
	obs := &countingObserver{}
	s := New[int]("x", 1, time.Hour, testLogger, WithObserver(obs))
	s.Get("a")
	s.Set("a", 1)
	s.Get("a")
	s.Set("b", 2)

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 1, obs.evictions)
}

func TestStoreObserverIgnoresExpiryAndRemoval(t *testing.T) {
	obs := &countingObserver{}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New[int]("x", 2, time.Minute, testLogger, WithObserver(obs), WithClock(clock.Now))

	s.Set("a", 1)
	s.Set("b", 2)
	s.Delete("a")
	clock.Advance(2 * time.Minute)
	_, ok := s.Get("b")
	assert.False(t, ok)

	s.Set("c", 3)
	s.Set("d", 4)
	s.Clear()
	assert.Equal(t, 0, obs.evictions)

	s.Set("e", 5)
	s.Set("f", 6)
	s.Set("g", 7)
	assert.Equal(t, 1, obs.evictions)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New[int]("x", 20, time.Hour, testLogger)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprint(n % 30)
			s.Set(key, n)
			s.Get(key)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 20)
}
