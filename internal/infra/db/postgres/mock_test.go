//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-github-helper/internal/domain/model"
	red "telegram-github-helper/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

type mockInnerCredentialRepo struct {
	UpsertFunc           func(ctx context.Context, c *model.Credential) (bool, error)
	FindByTelegramIDFunc func(ctx context.Context, tgID int64) (*model.Credential, error)
	DeleteFunc           func(ctx context.Context, tgID int64) (bool, error)
}

func (m *mockInnerCredentialRepo) Upsert(ctx context.Context, c *model.Credential) (bool, error) {
	return m.UpsertFunc(ctx, c)
}
func (m *mockInnerCredentialRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.Credential, error) {
	return m.FindByTelegramIDFunc(ctx, tgID)
}
func (m *mockInnerCredentialRepo) Delete(ctx context.Context, tgID int64) (bool, error) {
	return m.DeleteFunc(ctx, tgID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) (int64, error)
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) (int64, error) {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return false, nil
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return false, nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
