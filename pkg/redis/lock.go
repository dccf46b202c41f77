package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockNotObtained is returned when another holder owns the lock.
var ErrLockNotObtained = errors.New("lock not obtained")

// Locker hands out mutually exclusive leases on a named resource.
type Locker interface {
	Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

type redisLocker struct {
	client *Client
	locks  obtainer
	wait   redislock.RetryStrategy
}

// NewLocker builds a redislock backed Locker. Obtain retries for a short while
// before giving up with ErrLockNotObtained.
func NewLocker(client *Client) Locker {
	if client == nil || client.raw == nil {
		return NopLocker{}
	}
	return &redisLocker{
		client: client,
		locks:  redislock.New(client.raw),
		wait:   redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 10),
	}
}

func (l *redisLocker) Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	lock, err := l.locks.Obtain(ctx, l.client.LockKey(name), ttl, &redislock.Options{RetryStrategy: l.wait})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// NopLocker grants every lock immediately. It is used when redis is not
// configured, in which case only database constraints serialize writers.
type NopLocker struct{}

func (NopLocker) Obtain(context.Context, string, time.Duration) (Lease, error) {
	return nopLease{}, nil
}

type nopLease struct{}

func (nopLease) Release(context.Context) error { return nil }
