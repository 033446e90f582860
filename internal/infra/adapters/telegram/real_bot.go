package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-github-helper/internal/application"
	"telegram-github-helper/internal/config"
	"telegram-github-helper/internal/domain/ports/adapter"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"
	red "telegram-github-helper/internal/infra/redis"
	"telegram-github-helper/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// Telegram rejects longer message texts.
const maxMessageLen = 4096

// botClient is the part of tgbotapi.BotAPI used to talk to a chat.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RateLimiter counts requests per key in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to the bot facade.
type RealTelegramBotAdapter struct {
	api         *tgbotapi.BotAPI
	client      botClient
	cfg         *config.BotConfig
	limits      config.RateLimitConfig
	facade      application.Handler
	rateLimiter RateLimiter
	tr          application.Translator
	log         *zerolog.Logger

	cancelPolling context.CancelFunc
	mu            sync.Mutex
}

// NewRealTelegramBotAdapter connects to the Bot API. rateLimiter may be nil.
func NewRealTelegramBotAdapter(cfg *config.BotConfig, limits config.RateLimitConfig, facade application.Handler, tr application.Translator, rateLimiter RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	r := newAdapter(api, cfg, limits, facade, tr, rateLimiter, logger)
	r.api = api
	return r, nil
}

func newAdapter(client botClient, cfg *config.BotConfig, limits config.RateLimitConfig, facade application.Handler, tr application.Translator, rateLimiter RateLimiter, logger *zerolog.Logger) *RealTelegramBotAdapter {
	return &RealTelegramBotAdapter{
		client:      client,
		cfg:         cfg,
		limits:      limits,
		facade:      facade,
		rateLimiter: rateLimiter,
		tr:          tr,
		log:         logging.Component(logger, "telegram"),
	}
}

// StartPolling receives updates until ctx is cancelled. Updates are handed
// to a worker pool keyed by user, so one user's messages are handled in
// order while other users are served in parallel.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.api == nil {
		return errors.New("bot api is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.Timeout
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelPolling = cancel
	r.mu.Unlock()

	pool := worker.NewPool(r.cfg.Workers, 32, r.log)
	pool.Start(ctx)
	defer pool.Stop()

	r.log.Info().Str("bot", r.api.Self.UserName).Int("workers", r.cfg.Workers).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			r.log.Info().Msg("polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			key := updateUserID(up)
			if err := pool.Submit(ctx, key, func(ctx context.Context) error {
				return r.handleUpdate(ctx, up)
			}); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func updateUserID(up tgbotapi.Update) int64 {
	switch {
	case up.Message != nil && up.Message.From != nil:
		return up.Message.From.ID
	case up.CallbackQuery != nil && up.CallbackQuery.From != nil:
		return up.CallbackQuery.From.ID
	}
	return 0
}

// handleUpdate stamps the context with a trace id and the user before routing.
func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, ulid.Make().String())
	if id := updateUserID(update); id != 0 {
		ctx = logging.WithTgID(ctx, id)
	}

	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	return r.handleMessage(ctx, update.Message)
}

// allow applies the per-user rate limit. Limiter failures let the request
// through.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, bucket string) bool {
	if r.rateLimiter == nil || r.limits.Commands <= 0 {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, bucket), r.limits.Commands, r.limits.Window)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}

func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64, rep application.Reply) error {
	if len(rep.Buttons) > 0 {
		return r.SendButtons(ctx, chatID, rep.Text, rep.Buttons)
	}
	return r.SendMessage(ctx, chatID, rep.Text)
}

// SendMessage sends text, split into several messages when it is too long.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	for _, part := range splitText(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.client.Send(tgbotapi.NewMessage(tgID, part)); err != nil {
			metrics.IncTelegramSendError()
			return err
		}
	}
	return nil
}

// SendButtons sends a message with inline buttons using tgbotapi.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
// Long texts are split and the keyboard is attached to the last part.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kr := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, kr)
	}
	if len(kbRows) == 0 {
		return r.SendMessage(ctx, tgID, text)
	}

	parts := splitText(text, maxMessageLen)
	for _, p := range parts[:len(parts)-1] {
		if err := r.SendMessage(ctx, tgID, p); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tgID, parts[len(parts)-1])
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	if _, err := r.client.Send(msg); err != nil {
		metrics.IncTelegramSendError()
		return err
	}
	return nil
}

// splitText cuts s into chunks of at most max bytes, preferring line breaks.
// It always returns at least one element.
func splitText(s string, max int) []string {
	if len(s) <= max {
		return []string{s}
	}
	var out []string
	for len(s) > max {
		cut := strings.LastIndex(s[:max], "\n")
		if cut <= 0 {
			cut = max
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		out = append(out, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

