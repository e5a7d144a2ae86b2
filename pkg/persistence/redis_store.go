package persistence

import (
	"context"
	goerrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
}

// RedisStore keeps configurations as string values under KeyPrefix+name.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	logger ectologger.Logger
}

// NewRedisStore returns a store using namespace in front of KeyPrefix. A zero ttl
// keeps configurations forever.
func NewRedisStore(client RedisClient, namespace string, ttl time.Duration, logger ectologger.Logger) *RedisStore {
	prefix := KeyPrefix
	if namespace != "" {
		prefix = namespace + ":" + KeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Save(ctx context.Context, cfg SavedConfiguration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(cfg.Name), data, s.ttl).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("name", cfg.Name).Error("failed to save configuration to redis")
		return err
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (SavedConfiguration, bool) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if !goerrors.Is(err, redis.Nil) {
			s.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("failed to read configuration from redis")
		}
		return SavedConfiguration{}, false
	}

	cfg, err := Decode(data)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("name", name).Warn("ignoring corrupt saved configuration")
		return SavedConfiguration{}, false
	}
	return cfg, true
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, s.prefix))
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	removed, err := s.client.Del(ctx, s.key(name)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return errors.NewChainError(errors.CodeNotFound, "saved configuration not found").AddField("name")
	}
	return nil
}
