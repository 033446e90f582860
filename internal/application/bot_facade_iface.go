package application

import (
	"context"

	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
)

// Reply is a rendered answer for one chat. Buttons may be empty.
type Reply struct {
	Text    string
	Buttons [][]adapter.InlineButton
}

// Translator renders a locale key.
type Translator interface {
	T(key string, args ...interface{}) string
}

// Handler is what the chat transport needs from the application layer.
// Every method answers with something to show the user; failures are
// already turned into text.
type Handler interface {
	HandleStart(ctx context.Context, tgID int64) Reply
	HandleHelp(ctx context.Context, tgID int64) Reply
	HandleToken(ctx context.Context, tgID int64, token string) Reply
	HandleLogout(ctx context.Context, tgID int64) Reply
	HandleMe(ctx context.Context, tgID int64) Reply
	HandleRepos(ctx context.Context, tgID int64) Reply
	HandleRepository(ctx context.Context, tgID int64, name string) Reply
	HandleItems(ctx context.Context, tgID int64, wantIssues bool) Reply
	HandleClose(ctx context.Context, tgID int64, ref string) Reply
	HandleMerge(ctx context.Context, tgID int64, ref string) Reply
	HandleStartFlow(ctx context.Context, tgID int64, kind model.FlowKind, presetRepo string) Reply
	HandleCancel(ctx context.Context, tgID int64) Reply
	HandleText(ctx context.Context, tgID int64, text string) Reply
	HandleCallback(ctx context.Context, tgID int64, data string) Reply
}
