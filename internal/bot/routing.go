package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/dialog"
	"github.com/Spok95/channel-pass-bot/internal/domain/tokens"
	"github.com/Spok95/channel-pass-bot/internal/domain/users"
)

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStateMessage(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	tgID := msg.From.ID
	switch msg.Command() {
	case "start":
		// освежаем профиль при каждом /start
		if _, err := b.users.UpsertFromTelegram(ctx, users.Telegram{
			ID:        tgID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		}); err != nil {
			b.log.Error("upsert user failed", "err", err)
			b.send(tgbotapi.NewMessage(chatID, "Временная ошибка, попробуйте позже."))
			return
		}

		// диплинк t.me/<bot>?start=<value> — сразу в погашение
		if value := strings.TrimSpace(msg.CommandArguments()); value != "" {
			b.handleRedeem(ctx, chatID, tgID, value)
			return
		}

		if b.isAdmin(tgID) {
			m := tgbotapi.NewMessage(chatID, "Привет, админ! Управление тарифами и токенами — через меню.")
			m.ReplyMarkup = adminMenuKeyboard()
			b.send(m)
			return
		}
		b.send(tgbotapi.NewMessage(chatID,
			"Привет! Чтобы активировать подписку, откройте ссылку-приглашение из канала."))
		return

	case "help":
		b.send(tgbotapi.NewMessage(chatID,
			"Команды:\n/start — начать работу или активировать подписку по ссылке\n/status — срок вашей подписки\n/help — помощь"))
		return

	case "status":
		u, err := b.users.GetByTelegramID(ctx, tgID)
		if err != nil || u == nil {
			b.send(tgbotapi.NewMessage(chatID, "Подписка не найдена. Активируйте её по ссылке-приглашению."))
			return
		}
		if u.IsVIP && u.VIPExpiresAt != nil {
			b.send(tgbotapi.NewMessage(chatID,
				"Подписка активна до "+u.VIPExpiresAt.Format("02.01.2006")+"."))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Активной подписки нет."))
		return

	case "tariffs":
		if !b.isAdmin(tgID) {
			b.send(tgbotapi.NewMessage(chatID, "Доступ запрещён."))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Управление тарифами:")
		m.ReplyMarkup = adminMenuKeyboard()
		b.send(m)
		return

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
		return
	}
}

// handleRedeem — единственная точка погашения из чата. Три деловых
// отказа показываются одним текстом, чтобы по ответу нельзя было
// прощупывать существование токенов.
func (b *Bot) handleRedeem(ctx context.Context, chatID, tgID int64, value string) {
	res, err := b.tokenSvc.Redeem(ctx, value, tgID)
	switch {
	case err == nil:
		b.send(tgbotapi.NewMessage(chatID,
			"Готово! Подписка «"+res.TariffName+"» активна до "+
				res.MembershipExpiresAt.Format("02.01.2006")+"."))
	case errors.Is(err, tokens.ErrTokenNotFound),
		errors.Is(err, tokens.ErrTokenAlreadyUsed),
		errors.Is(err, tokens.ErrTokenExpired):
		b.send(tgbotapi.NewMessage(chatID, "Ссылка недействительна или уже использована."))
	default:
		b.log.Error("redeem failed", "user_id", tgID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Временная ошибка, попробуйте позже."))
	}
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(msg.From.ID) {
		return
	}
	st, _ := b.states.Get(ctx, chatID)
	switch st.State {
	case dialog.StateAdmTariffName,
		dialog.StateAdmTariffPrice,
		dialog.StateAdmTariffDuration,
		dialog.StateAdmTariffValidity:
		b.handleTariffCreateInput(ctx, chatID, st, msg.Text)
	case dialog.StateAdmTariffRename, dialog.StateAdmTariffReprice:
		b.handleTariffEditInput(ctx, chatID, st, msg.Text)
	}
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	cb := upd.CallbackQuery
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	// Убираем «часики» на кнопке.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug("callback ack failed", "err", err)
	}

	if !b.isAdmin(cb.From.ID) {
		return
	}
	b.handleAdminCallback(ctx, chatID, msgID, cb.Data)
}
