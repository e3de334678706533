package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("users: user not found")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userColumns = `id, telegram_id, username, first_name, last_name, is_vip, vip_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.IsVIP, &u.VIPExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, tgID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return u, nil
}

// UpsertFromTelegram освежает профиль, VIP-поля не трогает.
func (r *Repo) UpsertFromTelegram(ctx context.Context, tg Telegram) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			username   = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			updated_at = now()
		RETURNING `+userColumns, tg.ID, tg.Username, tg.FirstName, tg.LastName)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user from telegram: %w", err)
	}
	return u, nil
}

// SetVIP выставляет VIP-статус до указанного момента.
func (r *Repo) SetVIP(ctx context.Context, tgID int64, until time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_vip = TRUE, vip_expires_at = $2, updated_at = now()
		WHERE telegram_id = $1
	`, tgID, until)
	if err != nil {
		return fmt.Errorf("set vip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ExpireVIP снимает просроченный VIP и возвращает telegram_id задетых.
func (r *Repo) ExpireVIP(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE users SET is_vip = FALSE, updated_at = now()
		WHERE is_vip = TRUE AND vip_expires_at IS NOT NULL AND vip_expires_at <= $1
		RETURNING telegram_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("expire vip: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired vip id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
