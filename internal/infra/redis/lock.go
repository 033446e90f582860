// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"errors"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/ports/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

var _ repository.Locker = (*RedisLocker)(nil)

var errLockHeld = errors.New("lock held")

// RedisLocker is a SET NX lock shared by every bot replica.
type RedisLocker struct {
	cli    RedisClient
	prefix string
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c, prefix: "lock:"}
}

// lockBackoff is bounded by the caller's context only.
func lockBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}

// TryLock retries until the key is free or ctx is done.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	err := backoff.Retry(func() error {
		ok, err := l.cli.SetNX(ctx, l.prefix+key, token, ttl)
		if err != nil {
			return err
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, backoff.WithContext(lockBackoff(), ctx))
	if err != nil {
		return "", domain.ErrBusy
	}
	return token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.DelIfEquals(ctx, l.prefix+key, token)
	return err
}
