package gamestore

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/park285/Cheese-chess-server/internal/domain"
)

// RedisStore keeps each record as JSON under chess:game:<id>. IDs come from
// an INCR counter so they stay unique across server instances.
type RedisStore struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewRedisStore wraps rdb. A zero ttl keeps records forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
    return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) keyGame(id int) string { return "chess:game:" + strconv.Itoa(id) }
func (s *RedisStore) keySeq() string        { return "chess:game:seq" }

func (s *RedisStore) Create(ctx context.Context, name string) (*domain.GameRecord, error) {
    id, err := s.rdb.Incr(ctx, s.keySeq()).Result()
    if err != nil { return nil, fmt.Errorf("allocate game id: %w", err) }
    rec := newRecord(int(id), name)
    raw, err := json.Marshal(rec)
    if err != nil { return nil, err }
    ok, err := s.rdb.SetNX(ctx, s.keyGame(rec.GameID), raw, s.ttl).Result()
    if err != nil { return nil, err }
    if !ok { return nil, fmt.Errorf("game %d already exists", rec.GameID) }
    return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, gameID int) (*domain.GameRecord, error) {
    raw, err := s.rdb.Get(ctx, s.keyGame(gameID)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var rec domain.GameRecord
    if err := json.Unmarshal(raw, &rec); err != nil { return nil, fmt.Errorf("decode game %d: %w", gameID, err) }
    if rec.State == nil { return nil, fmt.Errorf("game %d: %w", gameID, ErrInvalidRecord) }
    return &rec, nil
}

// Update rewrites the record only while the key still exists. The existence
// check and the write run under WATCH so a concurrent delete cannot be
// resurrected.
func (s *RedisStore) Update(ctx context.Context, rec *domain.GameRecord) error {
    if err := validate(rec); err != nil { return err }
    raw, err := json.Marshal(rec)
    if err != nil { return err }
    key := s.keyGame(rec.GameID)
    err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
        n, err := tx.Exists(ctx, key).Result()
        if err != nil { return err }
        if n == 0 { return ErrNotFound }
        pipe := tx.TxPipeline()
        pipe.Set(ctx, key, raw, s.ttl)
        _, err = pipe.Exec(ctx)
        return err
    }, key)
    if errors.Is(err, redis.TxFailedErr) {
        return fmt.Errorf("update game %d: concurrent modification: %w", rec.GameID, err)
    }
    return err
}

func (s *RedisStore) Exists(ctx context.Context, gameID int) (bool, error) {
    n, err := s.rdb.Exists(ctx, s.keyGame(gameID)).Result()
    if err != nil { return false, err }
    return n > 0, nil
}

// ParseRedisURL turns redis://[:password@]host:port[/db] into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(strings.TrimSpace(raw))
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil { return nil, fmt.Errorf("bad redis db %q", p) }
        db = n
    }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
