package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/store/redisstore"
)

const (
	redisKeyName   = "chatHistory"
	redisTxRetries = 5
)

// RedisBackend keeps each log as one JSON array under chatHistory:<owner>.
type RedisBackend struct {
	rdb *redis.Client
}

func NewRedisBackend(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (b *RedisBackend) For(owner string) chat.Store {
	return &redisStore{rdb: b.rdb, key: redisstore.Key(redisKeyName, owner)}
}

type redisStore struct {
	rdb *redis.Client
	key string
}

func (s *redisStore) Save(ctx context.Context, conv chat.Conversation) error {
	return s.update(ctx, func(log []chat.Conversation) []chat.Conversation {
		return Upsert(log, conv)
	})
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(log []chat.Conversation) []chat.Conversation {
		return Remove(log, id)
	})
}

func (s *redisStore) List(ctx context.Context) ([]chat.Conversation, error) {
	return readLog(ctx, s.rdb, s.key)
}

func (s *redisStore) Load(ctx context.Context, id string) (chat.Conversation, error) {
	log, err := readLog(ctx, s.rdb, s.key)
	if err != nil {
		return chat.Conversation{}, err
	}
	if c, ok := Find(log, id); ok {
		return c, nil
	}
	return chat.Conversation{}, ErrNotFound
}

// update applies fn as an optimistic read-modify-write on the log key.
func (s *redisStore) update(ctx context.Context, fn func([]chat.Conversation) []chat.Conversation) error {
	txf := func(tx *redis.Tx) error {
		log, err := readLog(ctx, tx, s.key)
		if err != nil {
			return err
		}
		data, err := json.Marshal(fn(log))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("history: %s changed concurrently, gave up after %d attempts", s.key, redisTxRetries)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readLog(ctx context.Context, c getter, key string) ([]chat.Conversation, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var log []chat.Conversation
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", key, err)
	}
	return log, nil
}
