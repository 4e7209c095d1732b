package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/route-engine/internal/lock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL = 2 * time.Minute
	backoffStep    = 50 * time.Millisecond
	backoffMax     = time.Second
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ lock.Locker = (*BatchLocker)(nil)

// BatchLocker is a per-batch mutual exclusion lock backed by Redis. Each
// acquisition stores a random token so only its holder can release it.
type BatchLocker struct {
	client *goredis.Client
	ttl    time.Duration
	token  func() string
	sleep  func(ctx context.Context, d time.Duration) error
	script *goredis.Script
}

func NewBatchLocker(client *goredis.Client, ttl time.Duration) (*BatchLocker, error) {
	return newBatchLocker(client, ttl, uuid.NewString, sleepWithContext)
}

func newBatchLocker(
	client *goredis.Client,
	ttl time.Duration,
	tokenFn func() string,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*BatchLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if tokenFn == nil {
		tokenFn = uuid.NewString
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &BatchLocker{
		client: client,
		ttl:    ttl,
		token:  tokenFn,
		sleep:  sleepFn,
		script: releaseScript,
	}, nil
}

func BatchLockKey(batchID string) string {
	return fmt.Sprintf("route-engine:batch:%s:generation", batchID)
}

func (l *BatchLocker) Acquire(ctx context.Context, batchID string) (lock.Release, error) {
	if l == nil || l.client == nil || l.script == nil {
		return nil, fmt.Errorf("batch locker is not initialized")
	}

	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("batch id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := BatchLockKey(batchID)
	token := l.token()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	if !ok {
		return nil, lock.ErrHeld
	}

	return func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		deleted, err := l.script.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release batch lock: %w", err)
		}
		if deleted == 0 {
			return lock.ErrLost
		}
		return nil
	}, nil
}

func (l *BatchLocker) Wait(ctx context.Context, batchID string) (lock.Release, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		release, err := l.Acquire(ctx, batchID)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, lock.ErrHeld) {
			return nil, err
		}

		if err := l.sleep(ctx, backoff); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
