// memory.go - Process-local counter store

package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// dayKey identifies a calendar day as yyyymmdd in the location of t.
func dayKey(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// counter packs the reset day (high 32 bits) and the count (low 32 bits)
// into one word so a day change and an increment can never interleave.
type counter struct {
	state atomic.Int64
}

const countMask = 1<<32 - 1

func pack(day, count int64) int64 { return day<<32 | count&countMask }

func unpack(state int64) (day, count int64) { return state >> 32, state & countMask }

// load returns today's count, zeroing a counter left over from another day.
func (c *counter) load(today int64) int64 {
	for {
		old := c.state.Load()
		day, count := unpack(old)
		if day == today {
			return count
		}
		if c.state.CompareAndSwap(old, pack(today, 0)) {
			return 0
		}
	}
}

func (c *counter) incr(today int64) int64 {
	for {
		old := c.state.Load()
		day, count := unpack(old)
		if day != today {
			count = 0
		}
		if c.state.CompareAndSwap(old, pack(today, count+1)) {
			return count + 1
		}
	}
}

// MemoryStore keeps one atomic counter per provider. A counter resets
// lazily the first time it is touched on a new day.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]*counter
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*counter)}
}

func (s *MemoryStore) get(provider string) *counter {
	s.mu.RLock()
	c, ok := s.counters[provider]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[provider]; ok {
		return c
	}
	c = &counter{}
	s.counters[provider] = c
	return c
}

// Count returns today's counter value.
func (s *MemoryStore) Count(_ context.Context, provider string, now time.Time) (int64, error) {
	return s.get(provider).load(dayKey(now)), nil
}

// Incr increments today's counter and returns the new value.
func (s *MemoryStore) Incr(_ context.Context, provider string, now time.Time) (int64, error) {
	return s.get(provider).incr(dayKey(now)), nil
}
