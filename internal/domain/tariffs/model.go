package tariffs

import "time"

// Tariff — платный тарифный план доступа к каналу.
// duration_days и token_validity_days после выпуска первого токена
// не меняются: условия зафиксированы в момент выпуска.
type Tariff struct {
	ID                int64
	ChannelID         int64
	Name              string
	Price             float64
	DurationDays      int
	TokenValidityDays int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
