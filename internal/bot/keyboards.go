package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
)

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Создать тариф", "adm:trf:add"),
			tgbotapi.NewInlineKeyboardButtonData("📄 Тарифы", "adm:trf:list"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Отчёт по токенам", "adm:report"),
		),
	)
}

func navKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ В меню", "adm:menu"),
		),
	)
}

func tariffListKeyboard(list []tariffs.Tariff) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, t := range list {
		title := t.Name
		if !t.IsActive {
			title = "⛔ " + title
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s — %.2f₽ / %d дн.", title, t.Price, t.DurationDays),
				fmt.Sprintf("adm:trf:item:%d", t.ID)),
		))
	}
	rows = append(rows, navKeyboard().InlineKeyboard[0])
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func tariffItemKeyboard(t *tariffs.Tariff) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if t.IsActive {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Выпустить токен", fmt.Sprintf("adm:trf:issue:%d", t.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Название", fmt.Sprintf("adm:trf:rename:%d", t.ID)),
		tgbotapi.NewInlineKeyboardButtonData("💰 Цена", fmt.Sprintf("adm:trf:reprice:%d", t.ID)),
	))
	if t.IsActive {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛔ Деактивировать", fmt.Sprintf("adm:trf:off:%d", t.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("adm:trf:del:%d", t.ID)),
	))
	rows = append(rows, navKeyboard().InlineKeyboard[0])
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmTariffKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Создать", "adm:trf:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "adm:trf:cancel"),
		),
	)
}
