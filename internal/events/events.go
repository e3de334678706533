package events

import "time"

// Типы событий шины. Конкретный тип события определяет,
// какие подписчики его получат.
const (
	TypeTokenIssued   = "token.issued"
	TypeTokenRedeemed = "token.redeemed"
	TypeTokenExpired  = "token.expired"
	TypeVIPExpired    = "vip.expired"
)

type Event interface {
	EventType() string
}

type TokenIssued struct {
	TokenID  int64
	TariffID int64
	IssuedBy int64
}

func (TokenIssued) EventType() string { return TypeTokenIssued }

type TokenRedeemed struct {
	TokenID             int64
	UserID              int64
	ChannelID           int64
	TariffName          string
	MembershipExpiresAt time.Time
}

func (TokenRedeemed) EventType() string { return TypeTokenRedeemed }

// TokenExpired — неиспользованный токен пережил свой expires_at.
// Строка в БД при этом не меняется, событие чисто аудиторское.
type TokenExpired struct {
	TokenID   int64
	TariffID  int64
	ExpiresAt time.Time
}

func (TokenExpired) EventType() string { return TypeTokenExpired }

type VIPExpired struct {
	UserID int64
}

func (VIPExpired) EventType() string { return TypeVIPExpired }
