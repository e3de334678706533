package reactors

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/eventbus"
	"github.com/Spok95/channel-pass-bot/internal/events"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier рассылает уведомления о погашениях и просрочках.
// Ошибка отправки уходит в шину как исход обработчика и не влияет
// на само погашение.
type Notifier struct {
	api       Sender
	adminChat int64
	log       *slog.Logger
}

func NewNotifier(api Sender, adminChat int64, log *slog.Logger) *Notifier {
	return &Notifier{api: api, adminChat: adminChat, log: log}
}

func (n *Notifier) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TypeTokenRedeemed, "notifier", n.onRedeemed)
	bus.Subscribe(events.TypeTokenExpired, "notifier", n.onTokenExpired)
}

func (n *Notifier) onRedeemed(_ context.Context, e events.Event) error {
	ev, ok := e.(events.TokenRedeemed)
	if !ok {
		return fmt.Errorf("notifier: unexpected event %T", e)
	}

	userMsg := tgbotapi.NewMessage(ev.UserID, fmt.Sprintf(
		"Подписка «%s» активна до %s.",
		ev.TariffName, ev.MembershipExpiresAt.Format("02.01.2006"),
	))
	if _, err := n.api.Send(userMsg); err != nil {
		return fmt.Errorf("notifier: send to user %d: %w", ev.UserID, err)
	}

	if n.adminChat != 0 {
		adminMsg := tgbotapi.NewMessage(n.adminChat, fmt.Sprintf(
			"Токен #%d погашен пользователем %d, тариф «%s», доступ до %s.",
			ev.TokenID, ev.UserID, ev.TariffName, ev.MembershipExpiresAt.Format("02.01.2006 15:04"),
		))
		if _, err := n.api.Send(adminMsg); err != nil {
			return fmt.Errorf("notifier: send to admin chat: %w", err)
		}
	}
	return nil
}

func (n *Notifier) onTokenExpired(_ context.Context, e events.Event) error {
	ev, ok := e.(events.TokenExpired)
	if !ok {
		return fmt.Errorf("notifier: unexpected event %T", e)
	}
	if n.adminChat == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.adminChat, fmt.Sprintf(
		"Токен #%d (тариф %d) истёк неиспользованным %s.",
		ev.TokenID, ev.TariffID, ev.ExpiresAt.Format("02.01.2006 15:04"),
	))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("notifier: send to admin chat: %w", err)
	}
	return nil
}
