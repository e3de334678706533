package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/domain/tokens"
	"github.com/Spok95/channel-pass-bot/internal/events"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
)

type TokenScanner interface {
	ListUnusedExpiredBetween(ctx context.Context, from, to time.Time) ([]tokens.Token, error)
}

type VIPExpirer interface {
	ExpireVIP(ctx context.Context, now time.Time) ([]int64, error)
}

type MembershipExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// Sweeper — периодическая сверка по времени: аудит просроченных
// токенов, снятие VIP, пометка истёкших членств. Строки токенов не
// переписывает — их состояние Lapsed выводится из времени.
type Sweeper struct {
	tokens   TokenScanner
	users    VIPExpirer
	members  MembershipExpirer
	bus      Publisher
	log      *slog.Logger
	m        *metrics.Metrics
	interval time.Duration

	now  func() time.Time
	last time.Time
}

func New(tokenScanner TokenScanner, users VIPExpirer, members MembershipExpirer, bus Publisher, log *slog.Logger, m *metrics.Metrics, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	s := &Sweeper{
		tokens:   tokenScanner,
		users:    users,
		members:  members,
		bus:      bus,
		log:      log,
		m:        m,
		interval: interval,
		now:      time.Now,
	}
	s.last = s.now().UTC()
	return s
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", "err", err)
			}
		}
	}
}

// Sweep выполняет один проход. Окно (last, now] гарантирует, что
// TokenExpired по каждому токену уходит не больше одного раза.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()

	lapsed, err := s.tokens.ListUnusedExpiredBetween(ctx, s.last, now)
	if err != nil {
		return err
	}
	for _, t := range lapsed {
		s.bus.Publish(events.TokenExpired{TokenID: t.ID, TariffID: t.TariffID, ExpiresAt: t.ExpiresAt})
	}

	expiredVIPs, err := s.users.ExpireVIP(ctx, now)
	if err != nil {
		return err
	}
	for _, id := range expiredVIPs {
		s.m.VIPExpiredInc()
		s.bus.Publish(events.VIPExpired{UserID: id})
	}

	expiredMembers, err := s.members.ExpireLapsed(ctx, now)
	if err != nil {
		return err
	}

	if len(lapsed) > 0 || len(expiredVIPs) > 0 || expiredMembers > 0 {
		s.log.Info("sweep completed",
			"lapsed_tokens", len(lapsed),
			"expired_vips", len(expiredVIPs),
			"expired_memberships", expiredMembers)
	}

	s.last = now
	s.m.SweepInc()
	return nil
}
