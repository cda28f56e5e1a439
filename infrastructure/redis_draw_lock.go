package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DrawLockKey is the Redis key that guards draws across instances
const DrawLockKey = "raffle:draw_lock"

// releaseScript deletes the key only if this holder still owns it
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisDrawLock is a SET NX lease shared by every raffle instance
type RedisDrawLock struct {
	client       redis.Cmdable
	ttl          time.Duration
	pollInterval time.Duration
	newToken     func() string
}

// NewRedisDrawLock creates a new Redis-backed draw lock
func NewRedisDrawLock(client redis.Cmdable, ttl time.Duration) *RedisDrawLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisDrawLock{
		client:       client,
		ttl:          ttl,
		pollInterval: 100 * time.Millisecond,
		newToken:     func() string { return uuid.New().String() },
	}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Redis connection established")
	return rdb, nil
}

// Acquire polls until the lease is taken or ctx ends
func (l *RedisDrawLock) Acquire(ctx context.Context) (func(), error) {
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, DrawLockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire draw lock: %w", err)
		}
		if ok {
			log.WithField("token", token).Debug("Acquired draw lock")
			return func() { l.release(token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("draw lock is held by another instance: %w", ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *RedisDrawLock) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	released, err := l.client.Eval(ctx, releaseScript, []string{DrawLockKey}, token).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to release draw lock")
		return
	}
	if released == 0 {
		log.Warn("Draw lock expired before release")
	}
}
