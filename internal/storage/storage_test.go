package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

func TestTTLCache(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	loads := 0
	c := NewTTLCache(5*time.Second, func(context.Context) int {
		loads++
		return loads
	})
	c.now = func() time.Time { return now }

	assert.Equal(t, 1, c.Get(context.Background()))
	assert.Equal(t, 1, c.Get(context.Background()))

	now = now.Add(5 * time.Second)
	assert.Equal(t, 2, c.Get(context.Background()))

	c.Invalidate()
	assert.Equal(t, 3, c.Get(context.Background()))
}

func TestTTLCache_ZeroTTLAlwaysLoads(t *testing.T) {
	loads := 0
	c := NewTTLCache(0, func(context.Context) int {
		loads++
		return loads
	})
	c.Get(context.Background())
	c.Get(context.Background())
	assert.Equal(t, 2, loads)
}

// Runs against a real server when MONGO_TEST_URI is set.
func TestAuditStore_Mongo(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	store, err := ConnectMongo(ctx, uri, "expense_ai_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	defer func() {
		_ = store.collection.Database().Drop(ctx)
		_ = store.Close(ctx)
	}()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, provider := range []string{"gemini", "groq", "gemini"} {
		store.Emit(ctx, models.AuditLogEntry{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			RequestID:  uuid.NewString(),
			Provider:   provider,
			Capability: models.CapabilityTextCategorize,
			Success:    i != 1,
			LatencyMs:  int64(100 * i),
			Counter:    int64(i + 1),
			Limit:      40,
		})
	}

	entries, err := store.Recent(ctx, "gemini", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].Counter)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))

	all, err := store.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
