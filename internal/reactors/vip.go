package reactors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/eventbus"
	"github.com/Spok95/channel-pass-bot/internal/events"
)

type VIPStore interface {
	SetVIP(ctx context.Context, tgID int64, until time.Time) error
}

// VIPSync зеркалит активное членство во флаг is_vip пользователя.
type VIPSync struct {
	users VIPStore
	log   *slog.Logger
}

func NewVIPSync(users VIPStore, log *slog.Logger) *VIPSync {
	return &VIPSync{users: users, log: log}
}

func (s *VIPSync) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TypeTokenRedeemed, "vip-sync", s.onRedeemed)
	bus.Subscribe(events.TypeVIPExpired, "vip-sync", s.onExpired)
}

func (s *VIPSync) onRedeemed(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.TokenRedeemed)
	if !ok {
		return fmt.Errorf("vip-sync: unexpected event %T", e)
	}
	if err := s.users.SetVIP(ctx, ev.UserID, ev.MembershipExpiresAt); err != nil {
		return fmt.Errorf("vip-sync: set vip for %d: %w", ev.UserID, err)
	}
	return nil
}

// onExpired: флаг уже снят свипером, фиксируем в логе.
func (s *VIPSync) onExpired(_ context.Context, e events.Event) error {
	ev, ok := e.(events.VIPExpired)
	if !ok {
		return fmt.Errorf("vip-sync: unexpected event %T", e)
	}
	s.log.Info("vip status expired", "user_id", ev.UserID)
	return nil
}
