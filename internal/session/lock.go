package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker keeps one live conversation per game.
type Locker interface {
	Acquire(ctx context.Context, gameID, owner uuid.UUID) (bool, error)
	Refresh(ctx context.Context, gameID, owner uuid.UUID) error
	Release(ctx context.Context, gameID, owner uuid.UUID) error
}

const defaultLockTTL = 10 * time.Minute

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var refreshScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker implements Locker with SETNX keys that expire if the owner
// stops refreshing them.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameID.String())
}

// Acquire returns false if another session holds the game.
func (l *RedisLocker) Acquire(ctx context.Context, gameID, owner uuid.UUID) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(gameID), owner.String(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	return ok, nil
}

// Refresh extends the lock if owner still holds it.
func (l *RedisLocker) Refresh(ctx context.Context, gameID, owner uuid.UUID) error {
	if err := refreshScript.Run(ctx, l.client, []string{lockKey(gameID)}, owner.String(), l.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to refresh game lock: %w", err)
	}
	return nil
}

// Release deletes the lock only if owner holds it.
func (l *RedisLocker) Release(ctx context.Context, gameID, owner uuid.UUID) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(gameID)}, owner.String()).Err(); err != nil {
		return fmt.Errorf("failed to release game lock: %w", err)
	}
	return nil
}
