package repository

import (
	"context"

	"telegram-github-helper/internal/domain/model"
)

// -----------------------------
// Flow sessions
// -----------------------------

// FlowSessionRepository keeps at most one in-progress flow per Telegram user.
// Get returns domain.ErrNotFound when the user has no session.
type FlowSessionRepository interface {
	Get(ctx context.Context, tgID int64) (*model.FlowSession, error)
	Save(ctx context.Context, s *model.FlowSession) error
	Delete(ctx context.Context, tgID int64) (bool, error)
}
