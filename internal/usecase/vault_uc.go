package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
	"telegram-github-helper/internal/domain/ports/repository"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ VaultUseCase = (*vaultUC)(nil)

// Cipher encrypts tokens at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// StoreResult describes a stored token.
type StoreResult struct {
	User    *model.GitHubUser
	Updated bool // an older token was replaced
}

// VaultUseCase keeps the GitHub token of every Telegram user.
type VaultUseCase interface {
	Store(ctx context.Context, tgID int64, token string) (*StoreResult, error)
	// Load returns domain.ErrNoActiveCredential when no usable token exists.
	Load(ctx context.Context, tgID int64) (string, error)
	Forget(ctx context.Context, tgID int64) (bool, error)
}

type vaultUC struct {
	creds   repository.CredentialRepository
	cipher  Cipher
	clients adapter.GitHubClientFactory
	timeout time.Duration
	dev     bool
	log     *zerolog.Logger
}

func NewVaultUseCase(creds repository.CredentialRepository, cipher Cipher, clients adapter.GitHubClientFactory, timeout time.Duration, dev bool, logger *zerolog.Logger) *vaultUC {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &vaultUC{
		creds:   creds,
		cipher:  cipher,
		clients: clients,
		timeout: timeout,
		dev:     dev,
		log:     logging.Component(logger, "vault"),
	}
}

// Store checks the token against GitHub before it is encrypted and saved.
func (v *vaultUC) Store(ctx context.Context, tgID int64, token string) (*StoreResult, error) {
	defer logging.TraceDuration(v.log, "VaultUC.Store")()

	token = strings.TrimSpace(token)
	if tgID == 0 || token == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(ctx, v.log)

	cctx, cancel := context.WithTimeout(ctx, v.timeout)
	user, err := v.clients.ForToken(token).CurrentUser(cctx)
	cancel()
	if err != nil {
		metrics.IncCredentialOp("store", "rejected")
		log.Info().Err(err).Str("token", logging.Redact(token, v.dev)).Msg("token validation failed")
		if errors.Is(err, domain.ErrBadCredentials) {
			return nil, domain.ErrBadCredentials
		}
		return nil, fmt.Errorf("validate token: %w", err)
	}

	enc, err := v.cipher.Encrypt(token)
	if err != nil {
		metrics.IncCredentialOp("store", "error")
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	cred, err := model.NewCredential(tgID, enc, user.Login)
	if err != nil {
		return nil, err
	}
	created, err := v.creds.Upsert(ctx, cred)
	if err != nil {
		metrics.IncCredentialOp("store", "error")
		log.Error().Err(err).Msg("failed to save credential")
		return nil, err
	}

	metrics.IncCredentialOp("store", "ok")
	log.Info().Str("login", user.Login).Bool("updated", !created).Msg("credential stored")
	return &StoreResult{User: user, Updated: !created}, nil
}

func (v *vaultUC) Load(ctx context.Context, tgID int64) (string, error) {
	defer logging.TraceDuration(v.log, "VaultUC.Load")()

	cred, err := v.creds.FindByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncCredentialOp("load", "missing")
			return "", domain.ErrNoActiveCredential
		}
		metrics.IncCredentialOp("load", "error")
		return "", fmt.Errorf("load credential: %w", err)
	}
	token, err := v.cipher.Decrypt(cred.EncryptedToken)
	if err != nil {
		metrics.IncCredentialOp("load", "undecryptable")
		logging.With(ctx, v.log).Warn().Err(err).Int64("tg_id", tgID).Msg("stored token cannot be decrypted")
		return "", domain.ErrNoActiveCredential
	}
	if strings.TrimSpace(token) == "" {
		metrics.IncCredentialOp("load", "missing")
		return "", domain.ErrNoActiveCredential
	}
	metrics.IncCredentialOp("load", "ok")
	return token, nil
}

func (v *vaultUC) Forget(ctx context.Context, tgID int64) (bool, error) {
	defer logging.TraceDuration(v.log, "VaultUC.Forget")()

	ok, err := v.creds.Delete(ctx, tgID)
	if err != nil {
		metrics.IncCredentialOp("forget", "error")
		return false, err
	}
	metrics.IncCredentialOp("forget", "ok")
	return ok, nil
}
