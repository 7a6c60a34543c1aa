package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(maxSize int, ttl time.Duration) (*CacheManager, *time.Time) {
	m := NewManager(config.CacheConfig{Enabled: true, MaxSize: maxSize, TTL: ttl})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestManagerGetSet(t *testing.T) {
	m, _ := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestManagerExpiry(t *testing.T) {
	m, now := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	*now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.Equal(t, 0, m.GetStats().Size)
}

func TestManagerEvictsLeastUsed(t *testing.T) {
	m, now := newTestManager(2, time.Hour)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	*now = now.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))
	assert.Equal(t, 2, m.GetStats().Size)

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	for _, k := range []string{"a", "c"} {
		_, err := m.Get(ctx, k)
		assert.NoError(t, err, fmt.Sprintf("key %s", k))
	}
}

func TestKeyDependsOnModel(t *testing.T) {
	assert.Equal(t, Key("m1", "p"), Key("m1", "p"))
	assert.NotEqual(t, Key("m1", "p"), Key("m2", "p"))
}

func TestNewDisabled(t *testing.T) {
	c, err := New(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
