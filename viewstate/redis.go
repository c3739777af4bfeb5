package viewstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func liveKey(orderID string) string {
	return fmt.Sprintf("fuelninja:order:%s:live", orderID)
}

const (
	allOrdersKey  = "fuelninja:orders"
	celebratedKey = "fuelninja:celebrated"
)

func (r *RedisStore) SetLive(ctx context.Context, state *LiveState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, liveKey(state.OrderID), data, 0)
	pipe.SAdd(ctx, allOrdersKey, state.OrderID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetLive(ctx context.Context, orderID string) (*LiveState, error) {
	data, err := r.client.Get(ctx, liveKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state LiveState
	return &state, json.Unmarshal(data, &state)
}

func (r *RedisStore) MarkCelebrated(ctx context.Context, orderID string) error {
	return r.client.SAdd(ctx, celebratedKey, orderID).Err()
}

func (r *RedisStore) IsCelebrated(ctx context.Context, orderID string) (bool, error) {
	return r.client.SIsMember(ctx, celebratedKey, orderID).Result()
}

func (r *RedisStore) RemoveOrder(ctx context.Context, orderID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, liveKey(orderID))
	pipe.SRem(ctx, allOrdersKey, orderID)
	pipe.SRem(ctx, celebratedKey, orderID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, allOrdersKey).Result()
	if err != nil {
		return err
	}
	for _, id := range members {
		r.RemoveOrder(ctx, id)
	}
	return r.client.Del(ctx, allOrdersKey, celebratedKey).Err()
}
