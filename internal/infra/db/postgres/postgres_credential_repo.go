package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*PostgresCredentialRepo)(nil)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

type PostgresCredentialRepo struct {
	db querier
}

func NewPostgresCredentialRepo(db querier) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

func (r *PostgresCredentialRepo) Upsert(ctx context.Context, c *model.Credential) (bool, error) {
	const q = `
INSERT INTO credentials (telegram_id, encrypted_token, github_login, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (telegram_id) DO UPDATE SET
  encrypted_token = EXCLUDED.encrypted_token,
  github_login    = EXCLUDED.github_login,
  updated_at      = EXCLUDED.updated_at
RETURNING (xmax = 0), created_at;
`
	var created bool
	if err := r.db.QueryRow(ctx, q, c.TelegramID, c.EncryptedToken, c.GitHubLogin, c.CreatedAt, c.UpdatedAt).
		Scan(&created, &c.CreatedAt); err != nil {
		return false, fmt.Errorf("upsert credential: %w", err)
	}
	return created, nil
}

func (r *PostgresCredentialRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.Credential, error) {
	const q = `
SELECT telegram_id, encrypted_token, github_login, created_at, updated_at
  FROM credentials WHERE telegram_id=$1;
`
	var c model.Credential
	if err := r.db.QueryRow(ctx, q, tgID).
		Scan(&c.TelegramID, &c.EncryptedToken, &c.GitHubLogin, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &c, nil
}

func (r *PostgresCredentialRepo) Delete(ctx context.Context, tgID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE telegram_id=$1;`, tgID)
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
