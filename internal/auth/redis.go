package auth

import (
    "context"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// RedisStore reads tokens written by the login service under
// chess:auth:<token>.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) keyToken(token string) string { return "chess:auth:" + token }

func (s *RedisStore) Lookup(ctx context.Context, token string) (string, bool, error) {
    token = normalize(token)
    if token == "" { return "", false, nil }
    u, err := s.rdb.Get(ctx, s.keyToken(token)).Result()
    if err == redis.Nil { return "", false, nil }
    if err != nil { return "", false, err }
    u = strings.TrimSpace(u)
    return u, u != "", nil
}

// Issue stores a fresh random token for username. Used by tooling and tests;
// production tokens come from the login service.
func (s *RedisStore) Issue(ctx context.Context, username string, ttl time.Duration) (string, error) {
    token := uuid.NewString()
    if err := s.rdb.Set(ctx, s.keyToken(token), strings.TrimSpace(username), ttl).Err(); err != nil { return "", err }
    return token, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
    return s.rdb.Del(ctx, s.keyToken(normalize(token))).Err()
}
