package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlOutbox = 24 * time.Hour

// RedisStore keeps the outbox in a list so pending commands survive a
// process restart.
type RedisStore struct {
	rdb     *redis.Client
	session string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, session string) *RedisStore {
	session = strings.TrimSpace(session)
	if session == "" {
		session = "default"
	}
	return &RedisStore{rdb: rdb, session: session}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, redisURL, session string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisStore(rdb, session), nil
}

func (s *RedisStore) key() string { return "outbox:" + s.session }

func (s *RedisStore) Push(ctx context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Type) == "" {
		return ErrEmptyType
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, s.key(), raw).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.key(), ttlOutbox).Err()
}

func (s *RedisStore) Ack(ctx context.Context, kind string) (*Command, error) {
	if kind == "" {
		raw, err := s.rdb.LPop(ctx, s.key()).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var c Command
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return &c, nil
	}

	raws, err := s.rdb.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		var c Command
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		if c.Type != kind {
			continue
		}
		// LREM with count 1 drops the oldest identical entry
		if err := s.rdb.LRem(ctx, s.key(), 1, raw).Err(); err != nil {
			return nil, err
		}
		return &c, nil
	}
	return nil, nil
}

func (s *RedisStore) Pending(ctx context.Context) ([]Command, error) {
	raws, err := s.rdb.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Command, 0, len(raws))
	for _, raw := range raws {
		var c Command
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key()).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
