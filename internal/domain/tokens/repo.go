package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrValueTaken — коллизия уникального value при вставке.
var ErrValueTaken = errors.New("tokens: value already exists")

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const tokenColumns = `id, value, tariff_id, issued_by, created_at, expires_at, is_used, used_by, used_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	if err := row.Scan(&t.ID, &t.Value, &t.TariffID, &t.IssuedBy,
		&t.CreatedAt, &t.ExpiresAt, &t.IsUsed, &t.UsedBy, &t.UsedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) Insert(ctx context.Context, value string, tariffID, issuedBy int64, createdAt, expiresAt time.Time) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscription_tokens (value, tariff_id, issued_by, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+tokenColumns, value, tariffID, issuedBy, createdAt, expiresAt)
	t, err := scanToken(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrValueTaken
		}
		return nil, fmt.Errorf("insert token: %w", err)
	}
	return t, nil
}

// Consume — единственный переход unused -> used, одним условным
// UPDATE. Ноль затронутых строк означает «не вышло», причину
// различает сервис отдельным чтением.
func (r *Repo) Consume(ctx context.Context, value string, userID int64, now time.Time) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subscription_tokens
		SET is_used = TRUE, used_by = $2, used_at = $3
		WHERE value = $1 AND is_used = FALSE AND expires_at > $3
		RETURNING `+tokenColumns, value, userID, now)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}
	return t, nil
}

func (r *Repo) GetByValue(ctx context.Context, value string) (*Token, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM subscription_tokens WHERE value = $1`, value)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token by value: %w", err)
	}
	return t, nil
}

// ListUnusedExpiredBetween — неиспользованные токены, чей срок вышел
// в окне (from, to]. Окно нужно свиперу, чтобы не сигналить об одном
// токене на каждом проходе.
func (r *Repo) ListUnusedExpiredBetween(ctx context.Context, from, to time.Time) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM subscription_tokens
		WHERE is_used = FALSE AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list lapsed tokens: %w", err)
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ReportRow — строка отчёта по токенам канала для выгрузки в Excel.
type ReportRow struct {
	Token
	TariffName string
}

func (r *Repo) ListReport(ctx context.Context, channelID int64) ([]ReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT st.id, st.value, st.tariff_id, st.issued_by, st.created_at, st.expires_at,
		       st.is_used, st.used_by, st.used_at, t.name
		FROM subscription_tokens st
		JOIN tariffs t ON t.id = st.tariff_id
		WHERE t.channel_id = $1
		ORDER BY st.created_at DESC
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list token report: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.ID, &row.Value, &row.TariffID, &row.IssuedBy,
			&row.CreatedAt, &row.ExpiresAt, &row.IsUsed, &row.UsedBy, &row.UsedAt,
			&row.TariffName); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
