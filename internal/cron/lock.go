package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 4 * time.Minute

var errLockLost = errors.New("cron lock lost")

// Lock keeps a single cron worker active across replicas. Extend is called
// between jobs so a long cycle keeps its claim.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ExtendLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// RedisLock holds a named Redis lock. Each acquisition gets a fresh owner
// token of the form <instance>:<uuid>.
type RedisLock struct {
	client   locker
	name     string
	ttl      time.Duration
	instance string
	owner    string
}

func NewRedisLock(client locker, name, instance string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client required for lock")
	case name == "":
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, name: name, ttl: ttl, instance: instance}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	if l.instance != "" {
		owner = l.instance + ":" + owner
	}
	ok, err := l.client.AcquireLock(ctx, l.name, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.name, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Extend resets the TTL. It reports false once the lock has expired or been
// taken by someone else, after which this lock no longer owns anything.
func (l *RedisLock) Extend(ctx context.Context) (bool, error) {
	if l.owner == "" {
		return false, nil
	}
	ok, err := l.client.ExtendLock(ctx, l.name, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", l.name, err)
	}
	if !ok {
		l.owner = ""
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if err := l.client.ReleaseLock(ctx, l.name, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.name, err)
	}
	return nil
}
