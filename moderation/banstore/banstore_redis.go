package banstore

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var redisBanKey = "banned_users"

type RedisBanStore struct {
	Client *redis.Client
}

func NewRedisBanStore(redisURL string) (*RedisBanStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rbs := RedisBanStore{
		Client: rdb,
	}
	return &rbs, nil
}

func (s *RedisBanStore) Contains(ctx context.Context, userID int64) (bool, error) {
	return s.Client.SIsMember(ctx, redisBanKey, strconv.FormatInt(userID, 10)).Result()
}

func (s *RedisBanStore) Add(ctx context.Context, userID int64) error {
	return s.Client.SAdd(ctx, redisBanKey, strconv.FormatInt(userID, 10)).Err()
}

func (s *RedisBanStore) Remove(ctx context.Context, userID int64) error {
	return s.Client.SRem(ctx, redisBanKey, strconv.FormatInt(userID, 10)).Err()
}
