package memberships

import "time"

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusPending Status = "pending"
)

type Membership struct {
	UserID    int64
	ChannelID int64
	Status    Status
	JoinedAt  time.Time
	ExpiresAt time.Time
	Metadata  Meta
}

// Meta — снимок последнего погашения. Перезаписывается целиком,
// история погашений живёт в subscription_tokens.
type Meta struct {
	TariffName string    `json:"tariff_name,omitempty"`
	TokenID    int64     `json:"token_id,omitempty"`
	RedeemedAt time.Time `json:"redeemed_at,omitempty"`
}
