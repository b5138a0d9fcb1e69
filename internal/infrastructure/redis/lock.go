package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock represents a distributed lock using Redis
type DistributedLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewDistributedLock creates a new distributed lock
func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire attempts to acquire the lock without waiting.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", domainErrors.ErrLockAcquisitionFailed, err)
	}
	l.acquired = success
	return success, nil
}

// Release releases the lock if this instance still owns it.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.acquired = false

	if val, ok := result.(int64); !ok || val == 0 {
		return fmt.Errorf("%s: %w", l.key, domainErrors.ErrLockNotHeld)
	}
	return nil
}

// RunGuard keeps billing runs of a currency exclusive across worker
// processes. The lock expires after ttl so a crashed worker cannot block a
// currency for longer than that.
type RunGuard struct {
	client *redis.Client
	ttl    time.Duration

	mu   sync.Mutex
	held map[invoice.Currency]*DistributedLock
}

func NewRunGuard(client *redis.Client, ttl time.Duration) *RunGuard {
	return &RunGuard{
		client: client,
		ttl:    ttl,
		held:   make(map[invoice.Currency]*DistributedLock),
	}
}

func (g *RunGuard) TryAcquire(ctx context.Context, currency invoice.Currency) (bool, error) {
	lock := NewDistributedLock(g.client, "billing:run:"+currency.String(), g.ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return false, err
	}

	g.mu.Lock()
	g.held[currency] = lock
	g.mu.Unlock()
	return true, nil
}

func (g *RunGuard) Release(ctx context.Context, currency invoice.Currency) error {
	g.mu.Lock()
	lock, ok := g.held[currency]
	delete(g.held, currency)
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("billing run %s: %w", currency, domainErrors.ErrLockNotHeld)
	}
	return lock.Release(ctx)
}
