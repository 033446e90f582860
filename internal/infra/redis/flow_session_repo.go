package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/repository"
)

var _ repository.FlowSessionRepository = (*FlowSessionRepo)(nil)

// FlowSessionRepo keeps flow sessions in Redis. Every save refreshes the TTL,
// so a session expires after ttl of inactivity.
type FlowSessionRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewFlowSessionRepo(client RedisClient, ttl time.Duration) *FlowSessionRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &FlowSessionRepo{client: client, ttl: ttl}
}

func flowKey(tgID int64) string {
	return fmt.Sprintf("flow_session:%d", tgID)
}

func (r *FlowSessionRepo) Get(ctx context.Context, tgID int64) (*model.FlowSession, error) {
	data, err := r.client.Get(ctx, flowKey(tgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get flow session: %w", err)
	}
	var s model.FlowSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode flow session: %w", err)
	}
	return &s, nil
}

func (r *FlowSessionRepo) Save(ctx context.Context, s *model.FlowSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode flow session: %w", err)
	}
	return r.client.Set(ctx, flowKey(s.TelegramID), data, r.ttl)
}

func (r *FlowSessionRepo) Delete(ctx context.Context, tgID int64) (bool, error) {
	n, err := r.client.Del(ctx, flowKey(tgID))
	if err != nil {
		return false, fmt.Errorf("delete flow session: %w", err)
	}
	return n > 0, nil
}
