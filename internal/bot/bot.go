package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/dialog"
	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
	"github.com/Spok95/channel-pass-bot/internal/domain/tokens"
	"github.com/Spok95/channel-pass-bot/internal/domain/users"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	users     *users.Repo
	states    *dialog.Repo
	tariffs   *tariffs.Repo
	tokenSvc  *tokens.Service
	tokenRepo *tokens.Repo
	adminChat int64
	channelID int64
	username  string

	// сброс кэша тарифов после update/deactivate; nil без Redis
	invalidateTariff func(ctx context.Context, id int64)
}

func New(api *tgbotapi.BotAPI, log *slog.Logger,
	usersRepo *users.Repo, statesRepo *dialog.Repo,
	tariffsRepo *tariffs.Repo, tokenSvc *tokens.Service, tokenRepo *tokens.Repo,
	adminChatID, channelID int64, botUsername string,
	invalidateTariff func(ctx context.Context, id int64)) *Bot {

	return &Bot{
		api: api, log: log, users: usersRepo, states: statesRepo,
		tariffs: tariffsRepo, tokenSvc: tokenSvc, tokenRepo: tokenRepo,
		adminChat: adminChatID, channelID: channelID, username: botUsername,
		invalidateTariff: invalidateTariff,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) isAdmin(tgID int64) bool {
	return tgID == b.adminChat
}

func (b *Bot) editTextAndClear(chatID int64, msgID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, msgID, text))
}
