//go:build integration

package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ardhi/internal/region"
	"ardhi/internal/region/models"
	"ardhi/internal/region/store"
	platformredis "ardhi/internal/platform/redis"
	"ardhi/pkg/platform/sentinel"
	"ardhi/pkg/testutil/containers"
)

// countingStore counts lookups that reach the backing store.
type countingStore struct {
	next  region.Store
	calls atomic.Int64
}

func (s *countingStore) FindCounty(ctx context.Context, name string) (*models.County, error) {
	s.calls.Add(1)
	return s.next.FindCounty(ctx, name)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	backing := &countingStore{next: store.NewInMemory(store.DevCounties()...)}
	cached := New(backing, &platformredis.Client{Client: rc.Client}, time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := cached.FindCounty(ctx, "Nairobi")
	require.NoError(t, err)
	assert.Equal(t, "NAI", first.Code)
	assert.Equal(t, int64(1), backing.calls.Load())

	// Second lookup is served from Redis.
	second, err := cached.FindCounty(ctx, "Nairobi")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, int64(1), backing.calls.Load())

	// Misses are not cached.
	_, err = cached.FindCounty(ctx, "Atlantis")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	_, err = cached.FindCounty(ctx, "Atlantis")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	assert.Equal(t, int64(3), backing.calls.Load())
}
