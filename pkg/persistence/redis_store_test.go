package persistence

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	default:
		f.values[key] = fmt.Sprint(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedis) Keys(_ context.Context, pattern string) *redis.StringSliceCmd {
	prefix := strings.TrimSuffix(pattern, "*")
	keys := []string{}
	for key := range f.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return redis.NewStringSliceResult(keys, nil)
}

func newTestRedisStore(client RedisClient) *RedisStore {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewRedisStore(client, "enygma", time.Hour, logger)
}

func TestRedisStore_SaveLoadListDelete(t *testing.T) {
	client := newFakeRedis()
	store := newTestRedisStore(client)
	ctx := context.Background()
	cfg := sampleConfiguration()

	require.NoError(t, store.Save(ctx, cfg))
	assert.Contains(t, client.values, "enygma:cipher_state_sample")
	assert.Equal(t, time.Hour, client.ttls["enygma:cipher_state_sample"])

	loaded, ok := store.Load(ctx, "sample")
	require.True(t, ok)
	assert.Equal(t, cfg, loaded)

	client.values["other:cipher_state_x"] = "{}"
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, names)

	require.NoError(t, store.Delete(ctx, "sample"))
	assert.True(t, errors.IsNotFound(store.Delete(ctx, "sample")))
}

func TestRedisStore_LoadFailsClosed(t *testing.T) {
	client := newFakeRedis()
	store := newTestRedisStore(client)
	ctx := context.Background()

	_, ok := store.Load(ctx, "missing")
	assert.False(t, ok)

	client.values["enygma:cipher_state_bad"] = `{"name":"bad","timestamp":1,"state":{"version":9}}`
	_, ok = store.Load(ctx, "bad")
	assert.False(t, ok)

	client.failGet = fmt.Errorf("connection refused")
	_, ok = store.Load(ctx, "bad")
	assert.False(t, ok)
}

func TestNewRedisStore_NoNamespace(t *testing.T) {
	client := newFakeRedis()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := NewRedisStore(client, "", 0, logger)

	require.NoError(t, store.Save(context.Background(), sampleConfiguration()))
	assert.Contains(t, client.values, "cipher_state_sample")
}
