package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisOpTimeout = 2 * time.Second

// Redis adapts a go-redis client to the [Adapter] contract. Every operation
// is bounded by an op timeout so a stalled backend degrades to a miss instead
// of hanging the caller. Values are stored without expiry; lifecycle is the
// caller's concern.
type Redis struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
	hook      ErrorHook
}

// NewRedis creates a Redis adapter namespacing all keys under prefix.
func NewRedis(client *redis.Client, prefix string, hook ErrorHook) *Redis {
	return &Redis{
		client:    client,
		prefix:    prefix,
		opTimeout: defaultRedisOpTimeout,
		hook:      hook,
	}
}

// WithOpTimeout overrides the per-operation timeout. d <= 0 disables it.
func (r *Redis) WithOpTimeout(d time.Duration) *Redis {
	r.opTimeout = d
	return r
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Redis) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

// GetItem fetches key. Backend errors and missing keys both report absent.
func (r *Redis) GetItem(ctx context.Context, key string) (string, bool) {
	if r == nil || r.client == nil {
		return "", false
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.hook.emit("get", key, err)
		}
		return "", false
	}
	return value, true
}

// SetItem stores value under key, best effort.
func (r *Redis) SetItem(ctx context.Context, key, value string) {
	if r == nil || r.client == nil {
		return
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.hook.emit("set", key, err)
	}
}

// RemoveItem deletes key, best effort.
func (r *Redis) RemoveItem(ctx context.Context, key string) {
	if r == nil || r.client == nil {
		return
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.hook.emit("remove", key, err)
	}
}
