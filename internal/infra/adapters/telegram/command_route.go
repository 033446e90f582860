package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-github-helper/internal/application"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) application.Reply

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleStart(ctx, m.From.ID) },
		"help":   func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleHelp(ctx, m.From.ID) },
		"token":  r.handleTokenCommand,
		"logout": func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleLogout(ctx, m.From.ID) },
		"me":     func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleMe(ctx, m.From.ID) },
		"repos":  func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleRepos(ctx, m.From.ID) },
		"issues": func(ctx context.Context, m *tgbotapi.Message) application.Reply {
			return r.facade.HandleItems(ctx, m.From.ID, true)
		},
		"prs": func(ctx context.Context, m *tgbotapi.Message) application.Reply {
			return r.facade.HandleItems(ctx, m.From.ID, false)
		},
		"create_issue": func(ctx context.Context, m *tgbotapi.Message) application.Reply {
			return r.facade.HandleStartFlow(ctx, m.From.ID, model.FlowIssue, m.CommandArguments())
		},
		"create_pr": func(ctx context.Context, m *tgbotapi.Message) application.Reply {
			return r.facade.HandleStartFlow(ctx, m.From.ID, model.FlowPullRequest, m.CommandArguments())
		},
		"cancel": func(ctx context.Context, m *tgbotapi.Message) application.Reply { return r.facade.HandleCancel(ctx, m.From.ID) },
	}
}

// handleMessage routes commands through commandRoutes and everything else
// to the facade as free text.
func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.From.ID
	if message.Chat != nil {
		chatID = message.Chat.ID
	}

	bucket := "message"
	if message.IsCommand() {
		bucket = "/" + message.Command()
	}
	if !r.allow(ctx, message.From.ID, bucket) {
		return r.SendMessage(ctx, chatID, r.tr.T("rate_limited"))
	}

	if message.IsCommand() {
		metrics.IncTelegramCommand(bucket)
		fn, ok := r.commandRoutes()[message.Command()]
		if !ok {
			return r.SendMessage(ctx, chatID, r.tr.T("unknown_command"))
		}
		return r.reply(ctx, chatID, fn(ctx, message))
	}

	if message.Text == "" {
		return nil
	}
	return r.reply(ctx, chatID, r.facade.HandleText(ctx, message.From.ID, message.Text))
}

// handleTokenCommand stores the token and removes the message carrying it
// from the chat.
func (r *RealTelegramBotAdapter) handleTokenCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	rep := r.facade.HandleToken(ctx, message.From.ID, message.CommandArguments())
	if message.CommandArguments() != "" && message.Chat != nil {
		if _, err := r.client.Request(tgbotapi.NewDeleteMessage(message.Chat.ID, message.MessageID)); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("failed to delete token message")
		}
	}
	return rep
}
