package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/domain/tokens"
	"github.com/Spok95/channel-pass-bot/internal/events"
)

type tokenScannerStub struct {
	tokens []tokens.Token
	calls  [][2]time.Time
}

func (s *tokenScannerStub) ListUnusedExpiredBetween(_ context.Context, from, to time.Time) ([]tokens.Token, error) {
	s.calls = append(s.calls, [2]time.Time{from, to})
	var out []tokens.Token
	for _, t := range s.tokens {
		if !t.IsUsed && t.ExpiresAt.After(from) && !t.ExpiresAt.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type vipExpirerStub struct {
	expired [][]int64
}

func (s *vipExpirerStub) ExpireVIP(context.Context, time.Time) ([]int64, error) {
	if len(s.expired) == 0 {
		return nil, nil
	}
	batch := s.expired[0]
	s.expired = s.expired[1:]
	return batch, nil
}

type membershipExpirerStub struct{ count int64 }

func (s *membershipExpirerStub) ExpireLapsed(context.Context, time.Time) (int64, error) {
	return s.count, nil
}

type busStub struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *busStub) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *busStub) count(typ string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventType() == typ {
			n++
		}
	}
	return n
}

func TestSweepEmitsEachLapsedTokenOnce(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	scanner := &tokenScannerStub{tokens: []tokens.Token{
		{ID: 1, TariffID: 1, ExpiresAt: start.Add(30 * time.Minute)},
		{ID: 2, TariffID: 1, ExpiresAt: start.Add(90 * time.Minute)},
		{ID: 3, TariffID: 2, ExpiresAt: start.Add(90 * time.Minute), IsUsed: true},
	}}
	bus := &busStub{}
	s := New(scanner, &vipExpirerStub{}, &membershipExpirerStub{}, bus, slog.Default(), nil, time.Hour)

	current := start
	s.now = func() time.Time { return current }
	s.last = start

	// Первый проход через час: токен 1 просрочен, токен 2 ещё жив.
	current = start.Add(time.Hour)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep 1: %v", err)
	}
	if got := bus.count(events.TypeTokenExpired); got != 1 {
		t.Fatalf("TokenExpired after sweep 1 = %d, want 1", got)
	}

	// Второй проход: токен 2 вошёл в окно, токен 1 не повторяется,
	// использованный токен 3 не всплывает вовсе.
	current = start.Add(2 * time.Hour)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep 2: %v", err)
	}
	if got := bus.count(events.TypeTokenExpired); got != 2 {
		t.Fatalf("TokenExpired after sweep 2 = %d, want 2", got)
	}

	// Третий проход — пустое окно.
	current = start.Add(3 * time.Hour)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep 3: %v", err)
	}
	if got := bus.count(events.TypeTokenExpired); got != 2 {
		t.Fatalf("TokenExpired after sweep 3 = %d, want 2", got)
	}
}

func TestSweepClearsVIPAndEmits(t *testing.T) {
	bus := &busStub{}
	s := New(&tokenScannerStub{}, &vipExpirerStub{expired: [][]int64{{42, 43}}}, &membershipExpirerStub{count: 2}, bus, slog.Default(), nil, time.Hour)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := bus.count(events.TypeVIPExpired); got != 2 {
		t.Fatalf("VIPExpired events = %d, want 2", got)
	}
}
