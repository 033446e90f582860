package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeRedis is an in-memory RedisClient with expirations driven by now.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Time
	ttls    map[string]time.Duration
	now     func() time.Time
	failGet error
}

var _ RedisClient = (*fakeRedis)(nil)

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data:    map[string]string{},
		expires: map[string]time.Time{},
		ttls:    map[string]time.Duration{},
		now:     time.Now,
	}
}

func (f *fakeRedis) alive(key string) bool {
	exp, ok := f.expires[key]
	if ok && !f.now().Before(exp) {
		delete(f.data, key)
		delete(f.expires, key)
		return false
	}
	_, ok = f.data[key]
	return ok
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(key, value, exp)
	return nil
}

func (f *fakeRedis) put(key string, value interface{}, exp time.Duration) {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttls[key] = exp
	if exp > 0 {
		f.expires[key] = f.now().Add(exp)
	} else {
		delete(f.expires, key)
	}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alive(key) {
		return false, nil
	}
	f.put(key, value, exp)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return "", f.failGet
	}
	if !f.alive(key) {
		return "", redis.Nil
	}
	return f.data[key], nil
}

func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	if f.alive(key) {
		fmt.Sscan(f.data[key], &n)
	}
	n++
	f.data[key] = fmt.Sprint(n)
	return n, nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alive(key) {
		f.expires[key] = f.now().Add(exp)
		f.ttls[key] = exp
	}
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if f.alive(k) {
			n++
		}
		delete(f.data, k)
		delete(f.expires, k)
	}
	return n, nil
}

func (f *fakeRedis) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive(key) || f.data[key] != value {
		return false, nil
	}
	delete(f.data, key)
	delete(f.expires, key)
	return true, nil
}

func (f *fakeRedis) Close() error { return nil }
