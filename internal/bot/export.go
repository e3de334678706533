package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

// sendTokenReport выгружает журнал токенов канала в Excel.
// Полное значение токена в отчёт не попадает — только префикс,
// чтобы файл нельзя было использовать как пачку ссылок.
func (b *Bot) sendTokenReport(ctx context.Context, chatID int64) {
	rows, err := b.tokenRepo.ListReport(ctx, b.channelID)
	if err != nil {
		b.log.Error("token report failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать отчёт."))
		return
	}
	if len(rows) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Токены ещё не выпускались."))
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "Токены"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		b.log.Error("rename sheet failed", "err", err)
		return
	}

	headers := []string{"ID", "Токен", "Тариф", "Выпущен", "Действителен до", "Статус", "Погашен кем", "Погашен когда"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	const layout = "02.01.2006 15:04"
	now := time.Now().UTC()
	for i, r := range rows {
		status := "выпущен"
		usedBy, usedAt := "", ""
		switch {
		case r.IsUsed:
			status = "погашен"
			if r.UsedBy != nil {
				usedBy = fmt.Sprintf("%d", *r.UsedBy)
			}
			if r.UsedAt != nil {
				usedAt = r.UsedAt.Format(layout)
			}
		case r.Lapsed(now):
			status = "истёк"
		}
		values := []any{
			r.ID,
			r.Value[:8] + "…",
			r.TariffName,
			r.CreatedAt.Format(layout),
			r.ExpiresAt.Format(layout),
			status,
			usedBy,
			usedAt,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.log.Error("write report failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать отчёт."))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "tokens_" + now.Format("2006-01-02") + ".xlsx",
		Bytes: buf.Bytes(),
	})
	b.send(doc)
}
