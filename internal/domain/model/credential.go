package model

import (
	"time"

	"telegram-github-helper/internal/domain"
)

// Credential is the stored GitHub token of a Telegram user. The token is only
// ever held encrypted here.
type Credential struct {
	TelegramID     int64     `json:"telegram_id"`
	EncryptedToken string    `json:"encrypted_token"`
	GitHubLogin    string    `json:"github_login"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewCredential(tgID int64, encryptedToken, login string) (*Credential, error) {
	if tgID == 0 || encryptedToken == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Credential{
		TelegramID:     tgID,
		EncryptedToken: encryptedToken,
		GitHubLogin:    login,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
