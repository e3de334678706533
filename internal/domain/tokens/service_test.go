package tokens

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/domain/memberships"
	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
	"github.com/Spok95/channel-pass-bot/internal/events"
)

type tokenStoreStub struct {
	mu     sync.Mutex
	nextID int64
	byVal  map[string]*Token
}

func newTokenStoreStub() *tokenStoreStub {
	return &tokenStoreStub{nextID: 1, byVal: make(map[string]*Token)}
}

func (s *tokenStoreStub) Insert(_ context.Context, value string, tariffID, issuedBy int64, createdAt, expiresAt time.Time) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byVal[value]; ok {
		return nil, ErrValueTaken
	}
	t := &Token{
		ID:        s.nextID,
		Value:     value,
		TariffID:  tariffID,
		IssuedBy:  issuedBy,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	s.nextID++
	s.byVal[value] = t
	cp := *t
	return &cp, nil
}

// Consume повторяет семантику условного UPDATE: проверка и переход
// под одним замком.
func (s *tokenStoreStub) Consume(_ context.Context, value string, userID int64, now time.Time) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byVal[value]
	if !ok || t.IsUsed || !t.ExpiresAt.After(now) {
		return nil, nil
	}
	t.IsUsed = true
	t.UsedBy = &userID
	usedAt := now
	t.UsedAt = &usedAt
	cp := *t
	return &cp, nil
}

func (s *tokenStoreStub) GetByValue(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byVal[value]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type tariffReaderStub struct {
	mu      sync.Mutex
	tariffs map[int64]*tariffs.Tariff
}

func (s *tariffReaderStub) GetByID(_ context.Context, id int64) (*tariffs.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tariffs[id]
	if !ok {
		return nil, tariffs.ErrTariffNotFound
	}
	cp := *t
	return &cp, nil
}

type membershipStoreStub struct {
	mu      sync.Mutex
	upserts []memberships.Membership
}

func (s *membershipStoreStub) UpsertOnRedemption(_ context.Context, userID, channelID int64, expiresAt time.Time, meta memberships.Meta) (*memberships.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := memberships.Membership{
		UserID:    userID,
		ChannelID: channelID,
		Status:    memberships.StatusActive,
		ExpiresAt: expiresAt,
		Metadata:  meta,
	}
	s.upserts = append(s.upserts, m)
	cp := m
	return &cp, nil
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

func (b *busStub) byType(t string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *tokenStoreStub
	tariffs *tariffReaderStub
	members *membershipStoreStub
	bus     *busStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newTokenStoreStub(),
		tariffs: &tariffReaderStub{tariffs: make(map[int64]*tariffs.Tariff)},
		members: &membershipStoreStub{},
		bus:     &busStub{},
	}
	f.svc = NewService(f.store, f.tariffs, f.members, f.bus, slog.Default(), nil)
	return f
}

func (f *fixture) addTariff(id, channelID int64, durationDays, validityDays int, active bool) {
	f.tariffs.tariffs[id] = &tariffs.Tariff{
		ID:                id,
		ChannelID:         channelID,
		Name:              "Месяц",
		Price:             9.99,
		DurationDays:      durationDays,
		TokenValidityDays: validityDays,
		IsActive:          active,
	}
}

func TestIssueTariffNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Issue(context.Background(), 404, 1); !errors.Is(err, tariffs.ErrTariffNotFound) {
		t.Fatalf("expected ErrTariffNotFound, got %v", err)
	}
}

func TestIssueInactiveTariff(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, false)
	if _, err := f.svc.Issue(context.Background(), 1, 1); !errors.Is(err, tariffs.ErrTariffInactive) {
		t.Fatalf("expected ErrTariffInactive, got %v", err)
	}
}

func TestIssueSetsExpiryAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	issuedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return issuedAt }

	value, err := f.svc.Issue(context.Background(), 1, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tok, _ := f.store.GetByValue(context.Background(), value)
	if tok == nil {
		t.Fatal("token not persisted")
	}
	if want := issuedAt.AddDate(0, 0, 7); !tok.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", tok.ExpiresAt, want)
	}
	if got := f.bus.byType(events.TypeTokenIssued); len(got) != 1 {
		t.Fatalf("TokenIssued events = %d, want 1", len(got))
	}
}

func TestIssueValuesUnique(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		v, err := f.svc.Issue(context.Background(), 1, 1)
		if err != nil {
			t.Fatalf("issue #%d: %v", i, err)
		}
		if len(v) != 64 {
			t.Fatalf("value length = %d, want 64 hex chars", len(v))
		}
		if seen[v] {
			t.Fatalf("duplicate value %q", v)
		}
		seen[v] = true
	}
}

func TestIssueRetriesOnValueCollision(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	calls := 0
	f.svc.genValue = func() (string, error) {
		calls++
		if calls == 1 {
			return "collision", nil
		}
		return "fresh", nil
	}
	if _, err := f.store.Insert(context.Background(), "collision", 1, 1, time.Now(), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	v, err := f.svc.Issue(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if v != "fresh" {
		t.Fatalf("value = %q, want retried %q", v, "fresh")
	}
}

func TestRedeemSuccess(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	value, err := f.svc.Issue(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	redeemedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return redeemedAt }

	res, err := f.svc.Redeem(context.Background(), value, 42)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.ChannelID != 100 || res.DurationDays != 30 {
		t.Fatalf("unexpected result %+v", res)
	}
	// Срок членства — от момента погашения.
	if want := redeemedAt.AddDate(0, 0, 30); !res.MembershipExpiresAt.Equal(want) {
		t.Fatalf("membership expires %v, want %v", res.MembershipExpiresAt, want)
	}
	if len(f.members.upserts) != 1 {
		t.Fatalf("membership upserts = %d, want 1", len(f.members.upserts))
	}
	if got := f.bus.byType(events.TypeTokenRedeemed); len(got) != 1 {
		t.Fatalf("TokenRedeemed events = %d, want 1", len(got))
	}
}

func TestRedeemUnknownValue(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Redeem(context.Background(), "nope", 42); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRedeemTwiceYieldsAlreadyUsed(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	value, _ := f.svc.Issue(context.Background(), 1, 1)

	if _, err := f.svc.Redeem(context.Background(), value, 42); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := f.svc.Redeem(context.Background(), value, 43); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	issuedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return issuedAt }
	value, _ := f.svc.Issue(context.Background(), 1, 1)

	// День 8 при сроке жизни 7 дней.
	f.svc.now = func() time.Time { return issuedAt.AddDate(0, 0, 8) }
	if _, err := f.svc.Redeem(context.Background(), value, 42); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if len(f.members.upserts) != 0 {
		t.Fatal("expired redemption must not touch memberships")
	}
}

func TestDeactivationBlocksIssueNotRedemption(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	value, _ := f.svc.Issue(context.Background(), 1, 1)

	f.tariffs.tariffs[1].IsActive = false

	if _, err := f.svc.Issue(context.Background(), 1, 1); !errors.Is(err, tariffs.ErrTariffInactive) {
		t.Fatalf("expected ErrTariffInactive, got %v", err)
	}
	// Уже выпущенный токен остаётся погашаемым.
	if _, err := f.svc.Redeem(context.Background(), value, 42); err != nil {
		t.Fatalf("redeem under deactivated tariff: %v", err)
	}
}

func TestConcurrentRedeemExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)
	value, err := f.svc.Issue(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const n = 64
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		success int
		used    int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			<-start
			_, err := f.svc.Redeem(context.Background(), value, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrTokenAlreadyUsed):
				used++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(1000 + i))
	}
	close(start)
	wg.Wait()

	if success != 1 {
		t.Fatalf("successes = %d, want exactly 1", success)
	}
	if used != n-1 {
		t.Fatalf("already-used results = %d, want %d", used, n-1)
	}
	if len(f.members.upserts) != 1 {
		t.Fatalf("membership upserts = %d, want 1", len(f.members.upserts))
	}
}

// Сквозной сценарий: тариф 9.99/30д со сроком токена 7д,
// погашение на 3-й день, повтор, неизвестное значение, день 8.
func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	f.addTariff(1, 100, 30, 7, true)

	day0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return day0 }
	first, err := f.svc.Issue(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	day3 := day0.AddDate(0, 0, 3)
	f.svc.now = func() time.Time { return day3 }
	res, err := f.svc.Redeem(context.Background(), first, 42)
	if err != nil {
		t.Fatalf("redeem on day 3: %v", err)
	}
	if want := day3.AddDate(0, 0, 30); !res.MembershipExpiresAt.Equal(want) {
		t.Fatalf("membership expires %v, want %v", res.MembershipExpiresAt, want)
	}

	if _, err := f.svc.Redeem(context.Background(), first, 42); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("repeat redeem: want ErrTokenAlreadyUsed, got %v", err)
	}
	if _, err := f.svc.Redeem(context.Background(), "unknown-value", 42); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("unknown value: want ErrTokenNotFound, got %v", err)
	}

	f.svc.now = func() time.Time { return day0 }
	second, err := f.svc.Issue(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	f.svc.now = func() time.Time { return day0.AddDate(0, 0, 8) }
	if _, err := f.svc.Redeem(context.Background(), second, 43); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("day 8 redeem: want ErrTokenExpired, got %v", err)
	}
}
