package quota

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(limits map[string]int64) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)}
	return NewTracker(NewMemoryStore(), limits, WithClock(clock.Now)), clock
}

func TestTracker_SafeThresholdInvariant(t *testing.T) {
	ctx := context.Background()
	for limit := int64(5); limit <= 120; limit++ {
		tracker, _ := newTestTracker(map[string]int64{"p": limit})
		safe := limit * 8 / 10

		for count := int64(0); count <= limit; count++ {
			assert.Equal(t, count < safe, tracker.CanDispatch(ctx, "p"), "limit=%d count=%d", limit, count)
			tracker.RecordCall(ctx, "p", true, time.Millisecond)
		}
	}
}

func TestTracker_Monotonicity(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(map[string]int64{"gemini": 40})

	for i := int64(1); i <= 25; i++ {
		got := tracker.RecordCall(ctx, "gemini", i%2 == 0, 10*time.Millisecond)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, int64(25), tracker.Usage(ctx)["gemini"].Used)
}

func TestTracker_DailyReset(t *testing.T) {
	ctx := context.Background()
	tracker, clock := newTestTracker(map[string]int64{"together": 10})

	for i := 0; i < 8; i++ {
		tracker.RecordCall(ctx, "together", false, 0)
	}
	assert.False(t, tracker.CanDispatch(ctx, "together"))

	clock.Advance(14 * time.Hour) // 23:00 same day
	assert.False(t, tracker.CanDispatch(ctx, "together"))

	clock.Advance(2 * time.Hour) // next day
	assert.True(t, tracker.CanDispatch(ctx, "together"))
	assert.Equal(t, int64(0), tracker.Usage(ctx)["together"].Used)

	// Same day-of-month one month later is still a different day
	tracker.RecordCall(ctx, "together", true, 0)
	clock.Advance(31 * 24 * time.Hour)
	assert.Equal(t, int64(0), tracker.Usage(ctx)["together"].Used)
}

func TestTracker_UnknownProvider(t *testing.T) {
	tracker, _ := newTestTracker(map[string]int64{"groq": 6000})
	assert.False(t, tracker.CanDispatch(context.Background(), "unknown"))
}

func TestTracker_Usage(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(map[string]int64{"gemini": 40, "groq": 6000})
	for i := 0; i < 30; i++ {
		tracker.RecordCall(ctx, "gemini", true, 0)
	}

	usage := tracker.Usage(ctx)
	require.Len(t, usage, 2)
	assert.Equal(t, UsageStats{Used: 30, Limit: 40, Remaining: 10, SafeRemaining: 2}, usage["gemini"])
	assert.Equal(t, UsageStats{Used: 0, Limit: 6000, Remaining: 6000, SafeRemaining: 4800}, usage["groq"])

	for i := 0; i < 5; i++ {
		tracker.RecordCall(ctx, "gemini", true, 0)
	}
	assert.Equal(t, int64(0), tracker.Usage(ctx)["gemini"].SafeRemaining)
}

func TestTracker_CustomPercent(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), map[string]int64{"p": 10}, WithSafePercent(50))
	assert.Equal(t, int64(5), tracker.SafeLimit("p"))

	ignored := NewTracker(NewMemoryStore(), map[string]int64{"p": 10}, WithSafePercent(0))
	assert.Equal(t, int64(8), ignored.SafeLimit("p"))
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(map[string]int64{"groq": 6000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tracker.CanDispatch(ctx, "groq")
				tracker.RecordCall(ctx, "groq", true, 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), tracker.Usage(ctx)["groq"].Used)
}

type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Count(context.Context, string, time.Time) (int64, error) {
	return 0, errStoreDown
}

func (brokenStore) Incr(context.Context, string, time.Time) (int64, error) {
	return 0, errStoreDown
}

func TestTracker_StoreErrorsFailClosed(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(brokenStore{}, map[string]int64{"gemini": 40})

	assert.False(t, tracker.CanDispatch(ctx, "gemini"))
	assert.Equal(t, int64(-1), tracker.RecordCall(ctx, "gemini", true, 0))
	assert.Equal(t, UsageStats{Used: 40, Limit: 40}, tracker.Usage(ctx)["gemini"])
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	client, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, "quota-test-"+time.Now().Format("150405.000000"))
	day := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	n, err := store.Count(ctx, "gemini", day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	for i := int64(1); i <= 3; i++ {
		n, err = store.Incr(ctx, "gemini", day)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err = store.Count(ctx, "gemini", day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
