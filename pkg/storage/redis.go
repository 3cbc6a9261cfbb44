package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Clean1ines/shazamio/pkg/events"
)

const opTimeout = 3 * time.Second

// Redis - состояния сущностей для шаблонов, события и ограничение частоты.
type Redis struct {
	Client    *redis.Client
	StatesKey string
	Channel   string
}

// NewRedis подключается к Redis и проверяет соединение.
func NewRedis(ctx context.Context, addr, statesKey, channel string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("REDIS_ADDRESS не задан")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return &Redis{Client: client, StatesKey: statesKey, Channel: channel}, nil
}

func (r *Redis) Close() error { return r.Client.Close() }

func (r *Redis) attributesKey() string { return r.StatesKey + ":attributes" }

// State читает состояние сущности из хэша StatesKey.
func (r *Redis) State(ctx context.Context, entityID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	v, err := r.Client.HGet(ctx, r.StatesKey, entityID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Attribute читает атрибут из JSON-объекта сущности в хэше <StatesKey>:attributes.
func (r *Redis) Attribute(ctx context.Context, entityID, attr string) (any, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := r.Client.HGet(ctx, r.attributesKey(), entityID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return pickAttribute(raw, attr)
}

func pickAttribute(raw, attr string) (any, bool, error) {
	var attrs map[string]any
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, false, fmt.Errorf("атрибуты: %w", err)
	}
	v, ok := attrs[attr]
	return v, ok, nil
}

// SetState сохраняет состояние и атрибуты сущности.
func (r *Redis) SetState(ctx context.Context, entityID, value string, attrs map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.StatesKey, entityID, value)
		if attrs != nil {
			data, err := json.Marshal(attrs)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, r.attributesKey(), entityID, data)
		}
		return nil
	})
	return err
}

// DeleteState удаляет сущность вместе с атрибутами.
func (r *Redis) DeleteState(ctx context.Context, entityID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.StatesKey, entityID)
		pipe.HDel(ctx, r.attributesKey(), entityID)
		return nil
	})
	return err
}

// Publish отправляет событие в канал Channel.
func (r *Redis) Publish(ctx context.Context, e events.Event) error {
	payload, err := e.Payload()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.Client.Publish(ctx, r.Channel, payload).Err()
}

// Allow считает запросы ключа в окне window и разрешает не больше limit.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	key = rateKey(key)
	count, err := r.Client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.Client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

func rateKey(key string) string { return "rate:" + key }
