package prefs

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/health-assistant/internal/store/redisstore"
)

// RedisStore keeps one hash per profile under prefs:<owner>.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, owner string) (Preferences, error) {
	values, err := s.rdb.HGetAll(ctx, redisstore.Key("prefs", owner)).Result()
	if err != nil {
		return Preferences{}, err
	}
	return fromValues(values), nil
}

func (s *RedisStore) Put(ctx context.Context, owner string, p Preferences) error {
	return s.rdb.HSet(ctx, redisstore.Key("prefs", owner),
		KeyBotName, p.BotName,
		KeyLanguage, p.Language,
	).Err()
}
