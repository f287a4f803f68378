package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a Redis keyspace. The payload lives at the key
// itself, the version counter at key+":v", and annotations in a list at the
// key. Conditional writes use WATCH so a racing writer forces a conflict
// instead of a lost update.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing client. All keys are namespaced under prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "conveyor"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(key string) string {
	return r.prefix + "/" + key
}

func (r *Redis) versionKey(key string) string {
	return r.key(key) + ":v"
}

func (r *Redis) Put(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, r.key(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) GetWithVersion(ctx context.Context, key string) ([]byte, int64, error) {
	payload, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("redis get %s: %w", key, err)
	}

	version, err := r.client.Get(ctx, r.versionKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis get version %s: %w", key, err)
	}
	return payload, version, nil
}

func (r *Redis) PutWithVersion(ctx context.Context, key string, payload []byte, version int64) error {
	dataKey, verKey := r.key(key), r.versionKey(key)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version-1 {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dataKey, payload, 0)
			pipe.Set(ctx, verKey, version, 0)
			return nil
		})
		return err
	}, verKey)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil && !errors.Is(err, ErrVersionConflict) {
		return fmt.Errorf("redis conditional set %s: %w", key, err)
	}
	return err
}

func (r *Redis) AppendAnnotation(ctx context.Context, key, note string) error {
	if err := r.client.RPush(ctx, r.key(key), note).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Annotations(ctx context.Context, key string) ([]string, error) {
	notes, err := r.client.LRange(ctx, r.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return notes, nil
}

// RedisSettings holds connection parameters for the shared store.
type RedisSettings struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// NewRedisClient dials Redis with the given settings.
func NewRedisClient(cfg RedisSettings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
