package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/domain/memberships"
	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
	"github.com/Spok95/channel-pass-bot/internal/events"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
)

var (
	ErrTokenNotFound    = errors.New("tokens: token not found")
	ErrTokenAlreadyUsed = errors.New("tokens: token already used")
	ErrTokenExpired     = errors.New("tokens: token expired")
)

type TokenStore interface {
	Insert(ctx context.Context, value string, tariffID, issuedBy int64, createdAt, expiresAt time.Time) (*Token, error)
	Consume(ctx context.Context, value string, userID int64, now time.Time) (*Token, error)
	GetByValue(ctx context.Context, value string) (*Token, error)
}

type TariffReader interface {
	GetByID(ctx context.Context, id int64) (*tariffs.Tariff, error)
}

type MembershipStore interface {
	UpsertOnRedemption(ctx context.Context, userID, channelID int64, expiresAt time.Time, meta memberships.Meta) (*memberships.Membership, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// Service — выпуск и погашение токенов. Вся атомарность перехода
// unused -> used лежит на TokenStore.Consume; сервис лишь
// классифицирует отказ и раскручивает последствия успеха.
type Service struct {
	tokens  TokenStore
	tariffs TariffReader
	members MembershipStore
	bus     Publisher
	log     *slog.Logger
	m       *metrics.Metrics

	now      func() time.Time
	genValue func() (string, error)
}

func NewService(store TokenStore, tariffReader TariffReader, members MembershipStore, bus Publisher, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tokens:   store,
		tariffs:  tariffReader,
		members:  members,
		bus:      bus,
		log:      log,
		m:        m,
		now:      time.Now,
		genValue: GenerateValue,
	}
}

// GenerateValue — 32 случайных байта в hex: 256 бит энтропии.
func GenerateValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue выпускает токен по активному тарифу. Активность тарифа
// проверяется только здесь: погашение контракт не перепроверяет.
func (s *Service) Issue(ctx context.Context, tariffID, issuerID int64) (string, error) {
	trf, err := s.tariffs.GetByID(ctx, tariffID)
	if err != nil {
		return "", err
	}
	if !trf.IsActive {
		return "", tariffs.ErrTariffInactive
	}

	// Одна повторная попытка на случай коллизии value.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		value, err := s.genValue()
		if err != nil {
			return "", fmt.Errorf("generate token value: %w", err)
		}
		now := s.now().UTC()
		tok, err := s.tokens.Insert(ctx, value, trf.ID, issuerID, now, now.AddDate(0, 0, trf.TokenValidityDays))
		if errors.Is(err, ErrValueTaken) {
			lastErr = err
			continue
		}
		if err != nil {
			return "", err
		}

		s.m.IssuedInc()
		s.log.Info("token issued", "token_id", tok.ID, "tariff_id", trf.ID, "issued_by", issuerID)
		s.bus.Publish(events.TokenIssued{TokenID: tok.ID, TariffID: trf.ID, IssuedBy: issuerID})
		return tok.Value, nil
	}
	return "", lastErr
}

// Redeem атомарно гасит токен и выдаёт членство в канале.
// При гонке за один value ровно один вызов получает строку,
// остальные уходят в классификацию отказа.
func (s *Service) Redeem(ctx context.Context, value string, userID int64) (*RedemptionResult, error) {
	now := s.now().UTC()

	tok, err := s.tokens.Consume(ctx, value, userID, now)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		reason, err := s.classifyFailure(ctx, value)
		s.m.RedeemFailedInc(reason)
		return nil, err
	}

	trf, err := s.tariffs.GetByID(ctx, tok.TariffID)
	if err != nil {
		return nil, fmt.Errorf("load tariff %d after consume: %w", tok.TariffID, err)
	}

	// Срок членства считается от момента погашения, не от выпуска.
	expiresAt := now.AddDate(0, 0, trf.DurationDays)
	if _, err := s.members.UpsertOnRedemption(ctx, userID, trf.ChannelID, expiresAt, memberships.Meta{
		TariffName: trf.Name,
		TokenID:    tok.ID,
		RedeemedAt: now,
	}); err != nil {
		return nil, err
	}

	s.m.RedeemedInc()
	s.log.Info("token redeemed",
		"token_id", tok.ID, "user_id", userID, "channel_id", trf.ChannelID,
		"membership_expires_at", expiresAt)
	s.bus.Publish(events.TokenRedeemed{
		TokenID:             tok.ID,
		UserID:              userID,
		ChannelID:           trf.ChannelID,
		TariffName:          trf.Name,
		MembershipExpiresAt: expiresAt,
	})

	return &RedemptionResult{
		TokenID:             tok.ID,
		ChannelID:           trf.ChannelID,
		TariffName:          trf.Name,
		DurationDays:        trf.DurationDays,
		MembershipExpiresAt: expiresAt,
	}, nil
}

// classifyFailure различает, почему условный UPDATE не зацепил строку.
// Условие погашения — is_used = FALSE и живой срок, поэтому если
// строка есть и не использована, причиной мог быть только срок.
func (s *Service) classifyFailure(ctx context.Context, value string) (string, error) {
	tok, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		return "storage", err
	}
	switch {
	case tok == nil:
		return "not_found", ErrTokenNotFound
	case tok.IsUsed:
		return "already_used", ErrTokenAlreadyUsed
	default:
		return "expired", ErrTokenExpired
	}
}
