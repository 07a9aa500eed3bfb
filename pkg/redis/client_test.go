package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
)

func TestHitOpensWindowOnce(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for want := int64(1); want <= 3; want++ {
		got, err := client.Hit(ctx, "login:ip:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.Len(t, fake.expires, 1)
	assert.Equal(t, "cv:rate_limit:login:ip:10.0.0.1", fake.expires[0])

	_, err := client.Hit(ctx, "login:ip:10.0.0.2", time.Minute)
	require.NoError(t, err)
	assert.Len(t, fake.expires, 2)
}

func TestCacheSetGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	key := client.CacheKey("course", "intro-to-go")
	require.NoError(t, client.Set(ctx, key, `{"slug":"intro-to-go"}`, time.Minute))

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"slug":"intro-to-go"}`, got)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.True(t, IsMiss(err))
	assert.NoError(t, client.Del(ctx))
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	key := client.IdempotencyKey("payments-webhook", "evt_1")

	first, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	second, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
}

func TestUnconnectedClient(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errNotConnected)
	assert.NoError(t, nilClient.Close())

	_, err := (&Client{}).Hit(context.Background(), "x", time.Second)
	assert.ErrorIs(t, err, errNotConnected)
}

func TestKeys(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "cv:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "cv:rate_limit:register:email", client.RateLimitKey("register:email"))
	assert.Equal(t, "cv:cache:course:go-basics", client.CacheKey("course", " go-basics "))
	assert.Equal(t, "cv:cache:pack", client.CacheKey("pack", ""))
	assert.Equal(t, "cv:lock:cron-worker:prod", client.LockKey("cron-worker", "prod"))
}

func TestBuildOptions(t *testing.T) {
	opts, err := buildOptions(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		DB:          5,
		PoolSize:    12,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 12, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = buildOptions(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, opts.DB)

	_, err = buildOptions(config.RedisConfig{})
	assert.Error(t, err)
}

type fakeCommands struct {
	values   map[string]string
	counters map[string]int64
	expires  []string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{values: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
