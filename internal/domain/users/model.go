package users

import "time"

// User — узкая проекция пользователя: ядро владеет только
// VIP-полями, остальное — профиль из Telegram.
type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	IsVIP        bool
	VIPExpiresAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Telegram struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// VIPActive — флагу is_vip без проверки срока не доверяем.
func (u *User) VIPActive(now time.Time) bool {
	return u != nil && u.IsVIP && u.VIPExpiresAt != nil && u.VIPExpiresAt.After(now)
}
