package redis

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/config"
)

// fakeRedis interprets the three scripts the client sends, matched by SHA.
type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

var errScriptOnly = fmt.Errorf("fake redis only runs known scripts by sha")

func (f *fakeRedis) Eval(context.Context, string, []string, ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, errScriptOnly)
}

func (f *fakeRedis) EvalRO(context.Context, string, []string, ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, errScriptOnly)
}

func (f *fakeRedis) EvalShaRO(context.Context, string, []string, ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, errScriptOnly)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", errScriptOnly)
}

func (f *fakeRedis) EvalSha(_ context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	k := keys[0]
	owned := f.data[k] == fmt.Sprint(args[0])
	switch sha {
	case countHit.Hash():
		n, _ := strconv.ParseInt(f.data[k], 10, 64)
		n++
		f.data[k] = strconv.FormatInt(n, 10)
		if n == 1 {
			f.ttl[k] = time.Duration(args[0].(int64)) * time.Millisecond
		}
		return redis.NewCmdResult(n, nil)
	case extendIfOwner.Hash():
		if !owned {
			return redis.NewCmdResult(int64(0), nil)
		}
		f.ttl[k] = time.Duration(args[1].(int64)) * time.Millisecond
		return redis.NewCmdResult(int64(1), nil)
	case releaseIfOwner.Hash():
		if !owned {
			return redis.NewCmdResult(int64(0), nil)
		}
		delete(f.data, k)
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}

func TestCountHitStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	client := &Client{store: fake}

	for want := int64(1); want <= 3; want++ {
		n, err := client.CountHit(ctx, "ip:login:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, fake.ttl["aguasol:rate_limit:ip:login:1.2.3.4"])
}

func TestLockLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	client := &Client{store: fake}
	const lockKey = "aguasol:lock:cron"

	ok, err := client.AcquireLock(ctx, "cron", "worker-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = client.AcquireLock(ctx, "cron", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.ExtendLock(ctx, "cron", "worker-b", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "non-owner cannot extend")
	ok, err = client.ExtendLock(ctx, "cron", "worker-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, fake.ttl[lockKey])

	require.NoError(t, client.ReleaseLock(ctx, "cron", "worker-b"))
	assert.Contains(t, fake.data, lockKey, "non-owner release is a no-op")
	require.NoError(t, client.ReleaseLock(ctx, "cron", "worker-a"))
	assert.NotContains(t, fake.data, lockKey)
	require.NoError(t, client.ReleaseLock(ctx, "cron", "worker-a"))
}

func TestKeys(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "aguasol:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "aguasol:idempotency:id", client.IdempotencyKey(" ", "id"))
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	_, err := (&Client{}).CountHit(context.Background(), "x", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	require.Error(t, err)

	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 20, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}
