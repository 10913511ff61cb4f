package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo records how often the backend is hit.
type countingRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.BlacklistEntry
	finds   int
	inserts int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{entries: make(map[string]*domain.BlacklistEntry)}
}

func (r *countingRepo) Insert(_ context.Context, e *domain.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if cur, ok := r.entries[e.Email]; !ok || e.CreatedAt.Before(cur.CreatedAt) {
		r.entries[e.Email] = e
	}
	return nil
}

func (r *countingRepo) FindByEmail(_ context.Context, email string) (*domain.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	e, ok := r.entries[email]
	if !ok {
		return nil, blacklist.ErrNotFound
	}
	return e, nil
}

func (r *countingRepo) Ping(context.Context) error { return nil }

func setupCache(t *testing.T) (*BlacklistCache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newCountingRepo()
	return NewBlacklistCache(repo, client, time.Minute), repo, mr
}

func sampleEntry() *domain.BlacklistEntry {
	rt := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	return &domain.BlacklistEntry{
		ID:            "id-1",
		Email:         "test@example.com",
		AppUUID:       "12345",
		BlockedReason: "spam",
		RequestIP:     "10.0.0.1",
		RequestTime:   &rt,
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBlacklistCache_MissPopulatesCache(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, sampleEntry()))

	_, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists("blacklist:entry:test@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("blacklist:entry:test@example.com"))

	e, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds, "second lookup should be served from redis")
	assert.Equal(t, "spam", e.BlockedReason)
	require.NotNil(t, e.RequestTime)
	assert.True(t, sampleEntry().RequestTime.Equal(*e.RequestTime))
}

func TestBlacklistCache_NotFoundIsNotCached(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()

	_, err := c.FindByEmail(ctx, "test@example.com")
	assert.ErrorIs(t, err, blacklist.ErrNotFound)
	assert.False(t, mr.Exists("blacklist:entry:test@example.com"))

	require.NoError(t, c.Insert(ctx, sampleEntry()))
	e, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, 2, repo.finds)
	assert.Equal(t, 1, repo.inserts)
}

func TestBlacklistCache_InsertInvalidatesCachedEntry(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	later := sampleEntry()
	later.ID = "id-b"
	later.CreatedAt = t0.Add(time.Millisecond)
	require.NoError(t, c.Insert(ctx, later))

	e, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.Equal(t, "id-b", e.ID)
	require.True(t, mr.Exists("blacklist:entry:test@example.com"))

	// Stamped earlier but committed after the lookup above.
	earlier := sampleEntry()
	earlier.ID = "id-a"
	earlier.CreatedAt = t0
	require.NoError(t, c.Insert(ctx, earlier))
	assert.False(t, mr.Exists("blacklist:entry:test@example.com"))

	e, err = c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-a", e.ID)
	assert.Equal(t, 2, repo.finds)
}

func TestBlacklistCache_InsertSucceedsWithRedisDown(t *testing.T) {
	c, repo, mr := setupCache(t)
	mr.Close()

	require.NoError(t, c.Insert(context.Background(), sampleEntry()))
	assert.Equal(t, 1, repo.inserts)
}

func TestBlacklistCache_RedisDownFallsBack(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, sampleEntry()))
	mr.Close()

	e, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, 1, repo.finds)
}

func TestBlacklistCache_CorruptEntryIsIgnored(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, sampleEntry()))
	require.NoError(t, mr.Set("blacklist:entry:test@example.com", "{not json"))

	e, err := c.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, 1, repo.finds)
}

func TestBlacklistCache_PropagatesBackendErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewBlacklistCache(failingRepo{}, client, 0)
	_, err = c.FindByEmail(context.Background(), "a@example.com")
	assert.EqualError(t, err, "db down")
	assert.Equal(t, DefaultTTL, c.ttl)
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *domain.BlacklistEntry) error { return errors.New("db down") }
func (failingRepo) FindByEmail(context.Context, string) (*domain.BlacklistEntry, error) {
	return nil, errors.New("db down")
}
func (failingRepo) Ping(context.Context) error { return errors.New("db down") }
