package repository

import (
	"context"
	"time"
)

// Locker serializes work on a key across goroutines or processes.
// TryLock returns domain.ErrBusy when the key is still held after ctx is done.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
