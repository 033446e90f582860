package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-github-helper/internal/application"
	"telegram-github-helper/internal/infra/logging"
)

// handleQuery answers an inline button press. Close and merge results are
// shown as an alert on the button; everything else becomes a chat message.
func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	answered := false
	// Stop telegram spinner when we return
	defer func() {
		if !answered {
			_, _ = r.client.Request(tgbotapi.NewCallback(query.ID, ""))
		}
	}()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}

	if !r.allow(ctx, query.From.ID, "callback") {
		return r.SendMessage(ctx, chatID, r.tr.T("rate_limited"))
	}

	data := strings.TrimSpace(query.Data)
	rep := r.facade.HandleCallback(ctx, query.From.ID, data)

	switch application.ParseAction(data).Kind {
	case application.ActionClose, application.ActionMerge:
		answered = true
		if _, err := r.client.Request(tgbotapi.NewCallbackWithAlert(query.ID, rep.Text)); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("callback alert failed, sending message")
			return r.reply(ctx, chatID, rep)
		}
		return nil
	}
	return r.reply(ctx, chatID, rep)
}
