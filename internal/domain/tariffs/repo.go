package tariffs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTariffNotFound  = errors.New("tariffs: tariff not found")
	ErrTariffInactive  = errors.New("tariffs: tariff is inactive")
	ErrTariffHasTokens = errors.New("tariffs: tariff has issued tokens")
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const tariffColumns = `id, channel_id, name, price, duration_days, token_validity_days, is_active, created_at, updated_at`

func scanTariff(row pgx.Row) (*Tariff, error) {
	var t Tariff
	if err := row.Scan(
		&t.ID,
		&t.ChannelID,
		&t.Name,
		&t.Price,
		&t.DurationDays,
		&t.TokenValidityDays,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) Create(ctx context.Context, channelID int64, name string, price float64, durationDays, tokenValidityDays int) (*Tariff, error) {
	if durationDays <= 0 || tokenValidityDays <= 0 {
		return nil, fmt.Errorf("tariffs: duration and validity must be positive")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tariffs (channel_id, name, price, duration_days, token_validity_days)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+tariffColumns, channelID, name, price, durationDays, tokenValidityDays)
	t, err := scanTariff(row)
	if err != nil {
		return nil, fmt.Errorf("create tariff: %w", err)
	}
	return t, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Tariff, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tariffColumns+` FROM tariffs WHERE id = $1`, id)
	t, err := scanTariff(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTariffNotFound
		}
		return nil, fmt.Errorf("get tariff %d: %w", id, err)
	}
	return t, nil
}

// Update меняет только отображаемые поля. Сроки тарифа после создания
// не редактируются, чтобы не ломать уже выпущенные токены.
func (r *Repo) Update(ctx context.Context, id int64, name string, price float64) (*Tariff, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tariffs SET name = $2, price = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+tariffColumns, id, name, price)
	t, err := scanTariff(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTariffNotFound
		}
		return nil, fmt.Errorf("update tariff %d: %w", id, err)
	}
	return t, nil
}

// Deactivate — мягкий флаг: блокирует выпуск новых токенов,
// уже выпущенные неиспользованные токены остаются погашаемыми.
func (r *Repo) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tariffs SET is_active = FALSE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate tariff %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTariffNotFound
	}
	return nil
}

// Delete удаляет тариф, на который не ссылается ни один токен.
// С токенами тариф не удаляем — теряется трассируемость выпуска.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tariffs t
		WHERE t.id = $1
		  AND NOT EXISTS (SELECT 1 FROM subscription_tokens st WHERE st.tariff_id = t.id)
	`, id)
	if err != nil {
		return fmt.Errorf("delete tariff %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// либо тарифа нет, либо его держат токены
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrTariffHasTokens
	}
	return nil
}

func (r *Repo) List(ctx context.Context, channelID int64) ([]Tariff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tariffColumns+`
		FROM tariffs
		WHERE channel_id = $1
		ORDER BY is_active DESC, name
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list tariffs: %w", err)
	}
	defer rows.Close()

	var out []Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
