package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/config"
)

type fakeRedis struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, time.Minute)

	_, ok, err := m.Get(ctx, "offers")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "offers", []byte("payload"), 0))
	got, ok, err := m.Get(ctx, "offers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, m.Delete(ctx, "offers"))
	_, ok, _ = m.Get(ctx, "offers")
	assert.False(t, ok)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, time.Minute)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	r := &Redis{rdb: f}

	_, ok, err := r.Get(ctx, "offers")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "offers", []byte(`[1]`), time.Minute))
	assert.Equal(t, time.Minute, f.ttls[keyPrefix+"offers"])

	got, ok, err := r.Get(ctx, "offers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[1]`), got)

	require.NoError(t, r.Delete(ctx, "offers"))
	assert.Empty(t, f.data)

	require.NoError(t, r.Close())
	assert.True(t, f.closed)
}

func TestRedis_GetError(t *testing.T) {
	f := newFakeRedis()
	f.failGet = errors.New("connection refused")
	r := &Redis{rdb: f}

	_, _, err := r.Get(context.Background(), "offers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: get offers")
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := &Redis{rdb: newFakeRedis()}

	type snapshot struct {
		Names []string `json:"names"`
	}
	require.NoError(t, SetJSON(ctx, c, "snap", snapshot{Names: []string{"BetMGM"}}, time.Minute))

	var got snapshot
	ok, err := GetJSON(ctx, c, "snap", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"BetMGM"}, got.Names)

	ok, err = GetJSON(ctx, c, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "bad", []byte("{"), 0))
	_, err = GetJSON(ctx, c, "bad", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: decode bad")
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), config.CacheConfig{Driver: "memory"}, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(context.Background(), config.CacheConfig{Driver: "memcached"}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
