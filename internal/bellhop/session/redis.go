package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "session:"
	exchangeKeyPrefix = "exchanges:"

	// maxExchangesPerSender caps the per-sender audit list so an active
	// sender cannot grow a key without bound.
	maxExchangesPerSender = 100

	defaultTTL = 24 * time.Hour
)

// RedisStore implements Store on Redis: one JSON value per sender with a
// TTL that is refreshed on every read and write. Suitable when the bot runs
// as more than one replica behind the webhook.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sender string) (Session, error) {
	key := sessionKeyPrefix + sender
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}

	// Refresh TTL on read; an active dialogue should not expire mid-way.
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return sess, nil
}

// Set implements Store. The read-merge-write is not transactional: the
// store contract is last-writer-wins, so no WATCH round-trip is spent here.
func (s *RedisStore) Set(ctx context.Context, sender string, fields Fields) error {
	current, err := s.Get(ctx, sender)
	if err != nil {
		return err
	}
	return s.write(ctx, sender, merge(current, fields))
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, sender string) error {
	return s.write(ctx, sender, Session{})
}

func (s *RedisStore) write(ctx context.Context, sender string, sess Session) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sender, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// RecordExchange implements Store.
func (s *RedisStore) RecordExchange(ctx context.Context, sender, inbound, reply string) error {
	entry, err := json.Marshal(Exchange{Sender: sender, Inbound: inbound, Reply: reply})
	if err != nil {
		return fmt.Errorf("failed to encode exchange: %w", err)
	}

	key := exchangeKeyPrefix + sender
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, entry)
	pipe.LTrim(ctx, key, -maxExchangesPerSender, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
