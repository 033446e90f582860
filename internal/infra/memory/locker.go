package memory

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/ports/repository"
)

var _ repository.Locker = (*Locker)(nil)

// Locker is a keyed mutex for a single bot process. The ttl argument is
// ignored: a lock is held until Unlock.
type Locker struct {
	mu   sync.Mutex
	held map[string]*keyLock
	seq  atomic.Uint64
}

type keyLock struct {
	ch    chan struct{} // buffered(1), a token in the channel means free
	token string
	refs  int
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]*keyLock)}
}

func (l *Locker) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.held[key]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		k.ch <- struct{}{}
		l.held[key] = k
	}
	k.refs++
	return k
}

func (l *Locker) release(key string, k *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.held, key)
	}
}

// TryLock waits for key until ctx is done.
func (l *Locker) TryLock(ctx context.Context, key string, _ time.Duration) (string, error) {
	k := l.acquire(key)
	select {
	case <-k.ch:
		token := strconv.FormatUint(l.seq.Add(1), 10)
		l.mu.Lock()
		k.token = token
		l.mu.Unlock()
		return token, nil
	case <-ctx.Done():
		l.release(key, k)
		return "", domain.ErrBusy
	}
}

func (l *Locker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	k, ok := l.held[key]
	if !ok || k.token != token || token == "" {
		l.mu.Unlock()
		return nil
	}
	k.token = ""
	l.mu.Unlock()

	k.ch <- struct{}{}
	l.release(key, k)
	return nil
}
