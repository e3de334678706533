package tokens

import "time"

// Token — одноразовый погашаемый токен подписки. Строка создаётся
// один раз, мутирует ровно один раз (unused -> used) и никогда не
// удаляется: таблица служит журналом выпуска.
type Token struct {
	ID        int64
	Value     string
	TariffID  int64
	IssuedBy  int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
	UsedBy    *int64
	UsedAt    *time.Time
}

// Lapsed — просрочен ли неиспользованный токен. Состояние выводится
// из времени, отдельного флага в БД нет.
func (t *Token) Lapsed(now time.Time) bool {
	return !t.IsUsed && !t.ExpiresAt.After(now)
}

type RedemptionResult struct {
	TokenID             int64
	ChannelID           int64
	TariffName          string
	DurationDays        int
	MembershipExpiresAt time.Time
}
