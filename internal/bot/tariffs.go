package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/dialog"
	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
)

func (b *Bot) handleAdminCallback(ctx context.Context, chatID int64, msgID int, data string) {
	switch {
	case data == "adm:menu":
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Управление тарифами:", adminMenuKeyboard()))

	case data == "adm:trf:add":
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffName, dialog.Payload{})
		b.editTextAndClear(chatID, msgID, "Введите название тарифа:")

	case data == "adm:trf:list":
		b.showTariffList(ctx, chatID, msgID)

	case data == "adm:trf:confirm":
		b.confirmTariffCreate(ctx, chatID, msgID)

	case data == "adm:trf:cancel":
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Создание отменено.", adminMenuKeyboard()))

	case data == "adm:report":
		b.sendTokenReport(ctx, chatID)

	case strings.HasPrefix(data, "adm:trf:item:"):
		b.showTariffItem(ctx, chatID, msgID, parseID(data))

	case strings.HasPrefix(data, "adm:trf:issue:"):
		b.issueToken(ctx, chatID, parseID(data))

	case strings.HasPrefix(data, "adm:trf:rename:"):
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffRename, dialog.Payload{"tariff_id": parseID(data)})
		b.editTextAndClear(chatID, msgID, "Введите новое название:")

	case strings.HasPrefix(data, "adm:trf:reprice:"):
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffReprice, dialog.Payload{"tariff_id": parseID(data)})
		b.editTextAndClear(chatID, msgID, "Введите новую цену:")

	case strings.HasPrefix(data, "adm:trf:off:"):
		b.deactivateTariff(ctx, chatID, msgID, parseID(data))

	case strings.HasPrefix(data, "adm:trf:del:"):
		b.deleteTariff(ctx, chatID, msgID, parseID(data))
	}
}

func parseID(data string) int64 {
	parts := strings.Split(data, ":")
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

func (b *Bot) showTariffList(ctx context.Context, chatID int64, msgID int) {
	list, err := b.tariffs.List(ctx, b.channelID)
	if err != nil {
		b.log.Error("list tariffs failed", "err", err)
		b.editTextAndClear(chatID, msgID, "Не удалось загрузить тарифы.")
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Тарифов пока нет.", navKeyboard()))
		return
	}
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Тарифы канала:", tariffListKeyboard(list)))
}

func (b *Bot) showTariffItem(ctx context.Context, chatID int64, msgID int, id int64) {
	t, err := b.tariffs.GetByID(ctx, id)
	if err != nil {
		b.editTextAndClear(chatID, msgID, "Тариф не найден.")
		return
	}
	status := "активен"
	if !t.IsActive {
		status = "деактивирован"
	}
	text := fmt.Sprintf("«%s»\nЦена: %.2f₽\nЧленство: %d дн.\nСрок жизни токена: %d дн.\nСтатус: %s",
		t.Name, t.Price, t.DurationDays, t.TokenValidityDays, status)
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, tariffItemKeyboard(t)))
}

/*** Создание тарифа: name -> price -> duration -> validity -> confirm ***/

func (b *Bot) handleTariffCreateInput(ctx context.Context, chatID int64, st *dialog.Item, text string) {
	text = strings.TrimSpace(text)
	switch st.State {
	case dialog.StateAdmTariffName:
		if text == "" {
			b.send(tgbotapi.NewMessage(chatID, "Название не может быть пустым. Введите название:"))
			return
		}
		st.Payload["name"] = text
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffPrice, st.Payload)
		b.send(tgbotapi.NewMessage(chatID, "Введите цену (например 9.99):"))

	case dialog.StateAdmTariffPrice:
		price, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil || price < 0 {
			b.send(tgbotapi.NewMessage(chatID, "Нужно число, например 9.99. Введите цену:"))
			return
		}
		st.Payload["price"] = price
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffDuration, st.Payload)
		b.send(tgbotapi.NewMessage(chatID, "Сколько дней длится членство?"))

	case dialog.StateAdmTariffDuration:
		days, err := strconv.Atoi(text)
		if err != nil || days <= 0 {
			b.send(tgbotapi.NewMessage(chatID, "Нужно целое число дней больше нуля:"))
			return
		}
		st.Payload["duration_days"] = days
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffValidity, st.Payload)
		b.send(tgbotapi.NewMessage(chatID, "Сколько дней действует непогашенный токен?"))

	case dialog.StateAdmTariffValidity:
		days, err := strconv.Atoi(text)
		if err != nil || days <= 0 {
			b.send(tgbotapi.NewMessage(chatID, "Нужно целое число дней больше нуля:"))
			return
		}
		st.Payload["validity_days"] = days
		_ = b.states.Set(ctx, chatID, dialog.StateAdmTariffConfirm, st.Payload)

		name, _ := dialog.GetString(st.Payload, "name")
		price, _ := dialog.GetFloat(st.Payload, "price")
		duration, _ := dialog.GetInt(st.Payload, "duration_days")
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Создать тариф «%s»?\nЦена: %.2f₽\nЧленство: %d дн.\nСрок токена: %d дн.",
			name, price, duration, days))
		m.ReplyMarkup = confirmTariffKeyboard()
		b.send(m)
	}
}

func (b *Bot) confirmTariffCreate(ctx context.Context, chatID int64, msgID int) {
	st, _ := b.states.Get(ctx, chatID)
	if st.State != dialog.StateAdmTariffConfirm {
		b.editTextAndClear(chatID, msgID, "Нечего подтверждать.")
		return
	}
	name, _ := dialog.GetString(st.Payload, "name")
	price, _ := dialog.GetFloat(st.Payload, "price")
	duration, _ := dialog.GetInt(st.Payload, "duration_days")
	validity, _ := dialog.GetInt(st.Payload, "validity_days")

	t, err := b.tariffs.Create(ctx, b.channelID, name, price, duration, validity)
	if err != nil {
		b.log.Error("create tariff failed", "err", err)
		b.editTextAndClear(chatID, msgID, "Не удалось создать тариф.")
		return
	}
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
		fmt.Sprintf("Тариф «%s» создан (id %d).", t.Name, t.ID), adminMenuKeyboard()))
}

func (b *Bot) handleTariffEditInput(ctx context.Context, chatID int64, st *dialog.Item, text string) {
	id, _ := dialog.GetFloat(st.Payload, "tariff_id")
	tariffID := int64(id)
	text = strings.TrimSpace(text)

	t, err := b.tariffs.GetByID(ctx, tariffID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Тариф не найден."))
		_ = b.states.Reset(ctx, chatID)
		return
	}

	name, price := t.Name, t.Price
	switch st.State {
	case dialog.StateAdmTariffRename:
		if text == "" {
			b.send(tgbotapi.NewMessage(chatID, "Название не может быть пустым."))
			return
		}
		name = text
	case dialog.StateAdmTariffReprice:
		p, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil || p < 0 {
			b.send(tgbotapi.NewMessage(chatID, "Нужно число, например 9.99."))
			return
		}
		price = p
	}

	if _, err := b.tariffs.Update(ctx, tariffID, name, price); err != nil {
		b.log.Error("update tariff failed", "tariff_id", tariffID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось обновить тариф."))
		return
	}
	if b.invalidateTariff != nil {
		b.invalidateTariff(ctx, tariffID)
	}
	_ = b.states.Reset(ctx, chatID)
	m := tgbotapi.NewMessage(chatID, "Тариф обновлён.")
	m.ReplyMarkup = adminMenuKeyboard()
	b.send(m)
}

func (b *Bot) deactivateTariff(ctx context.Context, chatID int64, msgID int, id int64) {
	if err := b.tariffs.Deactivate(ctx, id); err != nil {
		b.log.Error("deactivate tariff failed", "tariff_id", id, "err", err)
		b.editTextAndClear(chatID, msgID, "Не удалось деактивировать тариф.")
		return
	}
	if b.invalidateTariff != nil {
		b.invalidateTariff(ctx, id)
	}
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
		"Тариф деактивирован. Выпущенные токены остаются действительными.", navKeyboard()))
}

func (b *Bot) deleteTariff(ctx context.Context, chatID int64, msgID int, id int64) {
	err := b.tariffs.Delete(ctx, id)
	switch {
	case err == nil:
		if b.invalidateTariff != nil {
			b.invalidateTariff(ctx, id)
		}
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Тариф удалён.", navKeyboard()))
	case errors.Is(err, tariffs.ErrTariffHasTokens):
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
			"По тарифу выпущены токены — удалить нельзя, только деактивировать.", navKeyboard()))
	case errors.Is(err, tariffs.ErrTariffNotFound):
		b.editTextAndClear(chatID, msgID, "Тариф не найден.")
	default:
		b.log.Error("delete tariff failed", "tariff_id", id, "err", err)
		b.editTextAndClear(chatID, msgID, "Не удалось удалить тариф.")
	}
}

/*** Выпуск токена ***/

func (b *Bot) issueToken(ctx context.Context, chatID, tariffID int64) {
	value, err := b.tokenSvc.Issue(ctx, tariffID, chatID)
	switch {
	case err == nil:
		link := fmt.Sprintf("https://t.me/%s?start=%s", b.username, value)
		b.send(tgbotapi.NewMessage(chatID,
			"Токен выпущен. Ссылка для покупателя:\n"+link))
	case errors.Is(err, tariffs.ErrTariffInactive):
		b.send(tgbotapi.NewMessage(chatID, "Тариф деактивирован, выпуск невозможен."))
	case errors.Is(err, tariffs.ErrTariffNotFound):
		b.send(tgbotapi.NewMessage(chatID, "Тариф не найден."))
	default:
		b.log.Error("issue token failed", "tariff_id", tariffID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось выпустить токен."))
	}
}
