package polling

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisService is a Service backend for multi-process deployments: field
// values live in plain Redis string keys so every worker process shares one view of
// the automation layer's field state, and RegisterField seeds the key so a
// sibling process's writer populates it.
type RedisService struct {
	client *redis.Client
	prefix string
}

// NewRedisService returns a Service backed by client. Keys are namespaced
// under prefix (e.g. "cqcwebsrv:fields").
func NewRedisService(client *redis.Client, prefix string) *RedisService {
	return &RedisService{client: client, prefix: prefix}
}

func (s *RedisService) key(sub Subscription) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, sub.Moniker, sub.Field)
}

func (s *RedisService) cacheKey(sub Subscription) string {
	return s.key(sub) + ":lastseen"
}

func (s *RedisService) RegisterField(ctx context.Context, sub Subscription) error {
	return s.client.SetNX(ctx, s.key(sub), "", 0).Err()
}

func (s *RedisService) UpdateValue(ctx context.Context, sub Subscription) (Value, bool, error) {
	formatted, err:= s.client.Get(ctx, s.key(sub)).Result()
	valid:= true
	if err == redis.Nil {
		formatted, valid, err = "", false, nil
	}
	if err != nil {
		return Value{}, false, err
	}

	prevFormatted, prevErr:= s.client.Get(ctx, s.cacheKey(sub)).Result()
	if prevErr != nil && prevErr != redis.Nil {
		return Value{}, false, prevErr
	}

	changed:= prevErr == redis.Nil || prevFormatted != formatted
	if err:= s.client.Set(ctx, s.cacheKey(sub), formatted, 0).Err(); err != nil {
		return Value{}, false, err
	}

	return Value{Formatted: formatted, Valid: valid}, changed, nil
}
