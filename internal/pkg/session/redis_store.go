// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "admin-console/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in redis so several console replicas share
// sessions.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "console"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, sid string) (*Credential, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &cred, nil
}

// Save deletes the previous value and writes the new one in a single
// transaction.
func (s *RedisStore) Save(ctx context.Context, sid string, cred *Credential, ttl time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	key := s.sessionKey(sid)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, data, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) sessionKey(sid string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sid)
}
