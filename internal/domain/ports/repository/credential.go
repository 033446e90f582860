package repository

import (
	"context"

	"telegram-github-helper/internal/domain/model"
)

// -----------------------------
// Credentials
// -----------------------------

type CredentialRepository interface {
	// Upsert stores c, replacing any previous credential of the same user.
	// created is false when an existing record was overwritten.
	Upsert(ctx context.Context, c *model.Credential) (created bool, err error)
	FindByTelegramID(ctx context.Context, tgID int64) (*model.Credential, error)
	Delete(ctx context.Context, tgID int64) (bool, error)
}
