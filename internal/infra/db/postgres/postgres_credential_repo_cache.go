package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/repository"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"
	red "telegram-github-helper/internal/infra/redis"
)

var _ repository.CredentialRepository = (*credentialRepoCacheDecorator)(nil)

// credentialRepoCacheDecorator caches credential rows in Redis. Only the
// encrypted token is ever cached.
type credentialRepoCacheDecorator struct {
	inner repository.CredentialRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCredentialRepoCacheDecorator(inner repository.CredentialRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.CredentialRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &credentialRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logging.Component(logger, "credential_cache")}
}

func credentialKey(tgID int64) string { return fmt.Sprintf("credential:tgid:%d", tgID) }

func (d *credentialRepoCacheDecorator) Upsert(ctx context.Context, c *model.Credential) (bool, error) {
	created, err := d.inner.Upsert(ctx, c)
	if err != nil {
		return false, err
	}
	d.invalidate(ctx, c.TelegramID)
	return created, nil
}

func (d *credentialRepoCacheDecorator) FindByTelegramID(ctx context.Context, tgID int64) (*model.Credential, error) {
	key := credentialKey(tgID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var c model.Credential
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("credential", "hit")
			return &c, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("credential cache read failed")
	}

	metrics.IncCacheRequest("credential", "miss")
	c, err := d.inner.FindByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(c); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return c, nil
}

func (d *credentialRepoCacheDecorator) Delete(ctx context.Context, tgID int64) (bool, error) {
	ok, err := d.inner.Delete(ctx, tgID)
	if err != nil {
		return false, err
	}
	d.invalidate(ctx, tgID)
	return ok, nil
}

func (d *credentialRepoCacheDecorator) invalidate(ctx context.Context, tgID int64) {
	if _, err := d.cache.Del(ctx, credentialKey(tgID)); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("credential cache invalidation failed")
	}
}
